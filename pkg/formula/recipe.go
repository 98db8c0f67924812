package formula

import (
	"strings"

	"github.com/arthur-debert/dopkg/pkg/errors"
	"github.com/arthur-debert/dopkg/pkg/types"
)

// recipe is the on-disk shape shared by the TOML and YAML decoders
type recipe struct {
	Name           string      `toml:"name" yaml:"name"`
	Homepage       string      `toml:"homepage" yaml:"homepage"`
	Description    string      `toml:"description" yaml:"description"`
	URL            string      `toml:"url" yaml:"url"`
	Version        string      `toml:"version" yaml:"version"`
	SHA1           string      `toml:"sha1" yaml:"sha1"`
	SHA256         string      `toml:"sha256" yaml:"sha256"`
	SHA512         string      `toml:"sha512" yaml:"sha512"`
	Hash           string      `toml:"hash" yaml:"hash"`
	DependsOn      []string    `toml:"depends_on" yaml:"depends_on"`
	Install        []string    `toml:"install" yaml:"install"`
	Test           *recipeTest `toml:"test" yaml:"test"`
	BuildDependsOn []string    `toml:"build_depends_on" yaml:"build_depends_on"`
}

type recipeTest struct {
	Command  string `toml:"command" yaml:"command"`
	Contains string `toml:"contains" yaml:"contains"`
	Equals   string `toml:"equals" yaml:"equals"`
	Matches  string `toml:"matches" yaml:"matches"`
	ExitCode *int   `toml:"exit_code" yaml:"exit_code"`
}

func (r recipe) toFormula() (types.Formula, error) {
	f := types.Formula{
		Name:        strings.TrimSpace(r.Name),
		Homepage:    r.Homepage,
		Description: r.Description,
		URL:         strings.TrimSpace(r.URL),
		Version:     strings.TrimSpace(r.Version),
		Install:     append([]string(nil), r.Install...),
	}

	algo, digest, err := r.digest()
	if err != nil {
		return types.Formula{}, err
	}
	f.Algorithm, f.Hash = algo, digest

	for _, spec := range r.DependsOn {
		dep, err := parseDependency(spec)
		if err != nil {
			return types.Formula{}, err
		}
		f.Dependencies = append(f.Dependencies, dep)
	}
	for _, name := range r.BuildDependsOn {
		f.Dependencies = append(f.Dependencies, types.Dependency{
			Name: strings.TrimSpace(name),
			Kind: types.DependencyBuild,
		})
	}

	if r.Test != nil {
		t, err := r.Test.toTest()
		if err != nil {
			return types.Formula{}, err
		}
		f.Test = t
	}
	return f, nil
}

func (r recipe) digest() (types.HashAlgorithm, string, error) {
	type candidate struct {
		algo  types.HashAlgorithm
		value string
	}
	var found []candidate
	for _, c := range []candidate{
		{types.SHA1, r.SHA1},
		{types.SHA256, r.SHA256},
		{types.SHA512, r.SHA512},
	} {
		if c.value != "" {
			found = append(found, candidate{c.algo, strings.ToLower(strings.TrimSpace(c.value))})
		}
	}
	if r.Hash != "" {
		algo, value, ok := strings.Cut(strings.TrimSpace(r.Hash), ":")
		if !ok {
			return "", "", errors.Newf(errors.ErrFormulaInvalid, "hash %q must be written as algorithm:digest", r.Hash)
		}
		found = append(found, candidate{types.HashAlgorithm(strings.ToLower(algo)), strings.ToLower(value)})
	}

	switch len(found) {
	case 0:
		return "", "", errors.New(errors.ErrFormulaInvalid, "formula declares no source hash")
	case 1:
		return found[0].algo, found[0].value, nil
	default:
		return "", "", errors.New(errors.ErrFormulaInvalid, "formula declares more than one source hash")
	}
}

func parseDependency(spec string) (types.Dependency, error) {
	name, kind, hasKind := strings.Cut(strings.TrimSpace(spec), ":")
	dep := types.Dependency{Name: strings.TrimSpace(name), Kind: types.DependencyRuntime}
	if hasKind {
		dep.Kind = types.DependencyKind(strings.TrimSpace(kind))
		if !dep.Kind.Valid() {
			return types.Dependency{}, errors.Newf(errors.ErrFormulaInvalid,
				"dependency %q has unknown kind %q", dep.Name, kind).
				WithDetail(errors.DetailDependency, dep.Name)
		}
	}
	return dep, nil
}

func (t recipeTest) toTest() (*types.Test, error) {
	var preds []types.Predicate
	if t.Contains != "" {
		preds = append(preds, types.Predicate{Kind: types.PredicateContains, Value: t.Contains})
	}
	if t.Equals != "" {
		preds = append(preds, types.Predicate{Kind: types.PredicateEquals, Value: t.Equals})
	}
	if t.Matches != "" {
		preds = append(preds, types.Predicate{Kind: types.PredicateMatches, Value: t.Matches})
	}
	if len(preds) != 1 {
		return nil, errors.Newf(errors.ErrFormulaInvalid,
			"test must declare exactly one of contains, equals or matches, found %d", len(preds))
	}
	return &types.Test{Command: t.Command, Predicate: preds[0], ExitCode: t.ExitCode}, nil
}
