package pipeline

import (
	"context"
	"slices"
)

// StageID identifies a stage.
type StageID string

const (
	StageDeployMocks           StageID = "deploy-mocks"
	StageProvisionSubscription StageID = "provision-subscription"
	StageDeployLottery         StageID = "deploy-lottery"
	StageAddConsumer           StageID = "add-consumer"
	StageVerify                StageID = "verify"
	StageUpdateFrontEnd        StageID = "update-front-end"
)

// Stage selection labels.
const (
	LabelAll      = "all"
	LabelMocks    = "mocks"
	LabelRaffle   = "raffle"
	LabelVerify   = "verify"
	LabelFrontEnd = "frontend"
)

// StageFunc runs a stage against the state produced by its dependencies and returns the new
// state. Returning an error created by skip records the stage as skipped.
type StageFunc func(ctx context.Context, r *runner, st State) (State, error)

// Stage is a unit of the deployment pipeline.
type Stage struct {
	ID     StageID
	Labels []string
	// DependsOn lists the stages whose output this stage consumes. They are always scheduled
	// before it and are pulled into a run that selects it.
	DependsOn []StageID
	Run       StageFunc
}

// matches reports whether the stage carries any of the labels.
func (s Stage) matches(labels []string) bool {
	for _, l := range labels {
		if slices.Contains(s.Labels, l) {
			return true
		}
	}

	return false
}

// DefaultStages returns the lottery deployment stages in declaration order.
func DefaultStages() []Stage {
	return []Stage{
		{
			ID:     StageDeployMocks,
			Labels: []string{LabelAll, LabelMocks},
			Run:    deployMocks,
		},
		{
			ID:        StageProvisionSubscription,
			Labels:    []string{LabelAll, LabelRaffle},
			DependsOn: []StageID{StageDeployMocks},
			Run:       provisionSubscription,
		},
		{
			ID:        StageDeployLottery,
			Labels:    []string{LabelAll, LabelRaffle},
			DependsOn: []StageID{StageProvisionSubscription},
			Run:       deployLottery,
		},
		{
			ID:        StageAddConsumer,
			Labels:    []string{LabelAll, LabelRaffle},
			DependsOn: []StageID{StageProvisionSubscription, StageDeployLottery},
			Run:       addConsumer,
		},
		{
			ID:        StageVerify,
			Labels:    []string{LabelAll, LabelRaffle, LabelVerify},
			DependsOn: []StageID{StageDeployLottery},
			Run:       verify,
		},
		{
			ID:        StageUpdateFrontEnd,
			Labels:    []string{LabelAll, LabelFrontEnd},
			DependsOn: []StageID{StageDeployLottery},
			Run:       updateFrontEnd,
		},
	}
}

// Labels returns every label carried by the stages, in first-seen order.
func Labels(stages []Stage) []string {
	var labels []string
	for _, s := range stages {
		for _, l := range s.Labels {
			if !slices.Contains(labels, l) {
				labels = append(labels, l)
			}
		}
	}

	return labels
}
