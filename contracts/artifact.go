// Package contracts loads compiled Hardhat artifacts and provides the typed helpers for the
// Lottery contract and the VRF coordinator it depends on.
package contracts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/smartcontractkit/lottery-deployments/internal/jsonutils"
)

// ErrArtifactNotFound is returned when no artifact exists for a contract name.
var ErrArtifactNotFound = errors.New("artifact not found")

// Artifact is a compiled contract as written by Hardhat to artifacts/<source>/<Name>.json.
type Artifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	RawABI       json.RawMessage `json:"abi"`
	Bytecode     hexutil.Bytes   `json:"bytecode"`

	// ABI is RawABI parsed.
	ABI abi.ABI `json:"-"`
	// path is the artifact location inside the loader's filesystem.
	path string
}

// FullyQualifiedName returns "<sourceName>:<contractName>", the form the block explorer expects
// for standard JSON input submissions.
func (a Artifact) FullyQualifiedName() string {
	return a.SourceName + ":" + a.ContractName
}

// CompactABI returns the ABI document without insignificant whitespace.
func (a Artifact) CompactABI() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, a.RawABI); err != nil {
		return nil, fmt.Errorf("failed to compact %s ABI: %w", a.ContractName, err)
	}

	return buf.Bytes(), nil
}

// BuildInfo is the compiler invocation an artifact was produced by.
type BuildInfo struct {
	SolcVersion     string `json:"solcVersion"`
	SolcLongVersion string `json:"solcLongVersion"`
	// Input is the solc standard JSON input.
	Input json.RawMessage `json:"input"`
}

// CompilerVersion returns the version string block explorers expect, e.g.
// "v0.8.7+commit.e28d00a7".
func (b BuildInfo) CompilerVersion() string {
	return "v" + strings.TrimPrefix(b.SolcLongVersion, "v")
}

type debugFile struct {
	BuildInfo string `json:"buildInfo"`
}

// Loader reads artifacts from a Hardhat artifacts directory.
type Loader struct {
	fsys fs.FS
}

// NewLoader returns a Loader rooted at the Hardhat artifacts directory dir.
func NewLoader(dir string) Loader {
	return NewLoaderFS(os.DirFS(dir))
}

// NewLoaderFS returns a Loader rooted at fsys.
func NewLoaderFS(fsys fs.FS) Loader {
	return Loader{fsys: fsys}
}

// Load finds the artifact of the contract called name and parses its ABI.
func (l Loader) Load(name string) (Artifact, error) {
	want := name + ".json"
	var found []string
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return fs.SkipDir
			}

			return nil
		}
		if d.Name() == want {
			found = append(found, p)
		}

		return nil
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to walk artifacts: %w", err)
	}

	switch len(found) {
	case 0:
		return Artifact{}, fmt.Errorf("%s: %w", name, ErrArtifactNotFound)
	case 1:
	default:
		return Artifact{}, fmt.Errorf("contract name %s is ambiguous, found %s", name, strings.Join(found, ", "))
	}

	a, err := jsonutils.LoadFromFS[Artifact](readFileFS{l.fsys}, found[0])
	if err != nil {
		return Artifact{}, err
	}
	a.path = found[0]

	if a.ContractName != name {
		return Artifact{}, fmt.Errorf("artifact %s declares contract %q", found[0], a.ContractName)
	}
	if len(a.Bytecode) == 0 {
		return Artifact{}, fmt.Errorf("artifact %s has no bytecode, is %s abstract?", found[0], name)
	}
	a.ABI, err = abi.JSON(bytes.NewReader(a.RawABI))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to parse %s ABI: %w", name, err)
	}

	return a, nil
}

// BuildInfo resolves the build info referenced by the artifact's debug file.
func (l Loader) BuildInfo(a Artifact) (BuildInfo, error) {
	if a.path == "" {
		return BuildInfo{}, fmt.Errorf("artifact %s was not loaded from this loader", a.ContractName)
	}

	dbgPath := strings.TrimSuffix(a.path, ".json") + ".dbg.json"
	dbg, err := jsonutils.LoadFromFS[debugFile](readFileFS{l.fsys}, dbgPath)
	if err != nil {
		return BuildInfo{}, err
	}
	if dbg.BuildInfo == "" {
		return BuildInfo{}, fmt.Errorf("debug file %s does not reference a build info", dbgPath)
	}

	biPath := path.Join(path.Dir(dbgPath), dbg.BuildInfo)
	bi, err := jsonutils.LoadFromFS[BuildInfo](readFileFS{l.fsys}, biPath)
	if err != nil {
		return BuildInfo{}, err
	}
	if bi.SolcLongVersion == "" || len(bi.Input) == 0 {
		return BuildInfo{}, fmt.Errorf("build info %s is missing the compiler version or input", biPath)
	}

	return bi, nil
}

// readFileFS adapts any fs.FS to fs.ReadFileFS.
type readFileFS struct {
	fs.FS
}

func (r readFileFS) ReadFile(name string) ([]byte, error) {
	return fs.ReadFile(r.FS, name)
}
