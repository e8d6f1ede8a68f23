/*
Package operations provides the building blocks the deployment pipeline uses to run each on-chain
step in a structured and traceable manner.

# Operations

An Operation is a versioned unit of work with typed input, output and dependencies. Each
operation performs at most one side effect, such as sending a transaction.

ExecuteOperation runs an operation, records a Report of its input, output and error with the
Bundle's Reporter, and returns it. Retry with retry-go backoff is available through
ExecuteOption but is disabled unless requested.

# Basic Usage

	op := operations.NewOperation(
		"deploy-vrf-coordinator-mock", semver.MustParse("1.0.0"), "Deploy VRFCoordinatorV2Mock",
		handler,
	)

	bundle := operations.NewBundle(ctx.Context, lggr, operations.NewMemoryReporter())
	report, err := operations.ExecuteOperation(bundle, op, deps, input)
*/
package operations
