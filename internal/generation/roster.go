package generation

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
)

// rosterFile is the on-disk layout of one roster YAML file.
type rosterFile struct {
	Creatures []rosterCreature `yaml:"creatures"`
}

// rosterCreature decodes one profile over character.DefaultStats, so a stat
// the file omits takes its default while an explicit 0 is kept.
type rosterCreature struct {
	character.Profile
}

func (c *rosterCreature) UnmarshalYAML(node *yaml.Node) error {
	p := character.Profile{Stats: character.DefaultStats()}
	if err := node.Decode(&p); err != nil {
		return err
	}
	c.Profile = p
	return nil
}

// Roster serves pre-generated profiles without any network access.
type Roster struct {
	entries []character.Profile
	src     dice.Source
}

// NewRoster builds a roster over profiles, normalizing each.
//
// Precondition: profiles must be non-empty and src non-nil.
func NewRoster(profiles []character.Profile, src dice.Source) (*Roster, error) {
	if len(profiles) == 0 {
		return nil, errors.New("roster must contain at least one creature")
	}
	if src == nil {
		return nil, errors.New("roster requires a dice source")
	}
	entries := make([]character.Profile, len(profiles))
	for i, p := range profiles {
		entries[i] = character.Normalize(p)
	}
	return &Roster{entries: entries, src: src}, nil
}

// LoadRoster reads every .yaml/.yml file in dir and builds a Roster from the
// creatures they list, in file name order.
func LoadRoster(dir string, src dice.Source) (*Roster, error) {
	files, err := yamlFiles(dir)
	if err != nil {
		return nil, err
	}
	var profiles []character.Profile
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var f rosterFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing roster file %s: %w", path, err)
		}
		for _, c := range f.Creatures {
			profiles = append(profiles, c.Profile)
		}
	}
	r, err := NewRoster(profiles, src)
	if err != nil {
		return nil, fmt.Errorf("loading roster from %s: %w", dir, err)
	}
	return r, nil
}

// Len returns the number of creatures in the roster.
func (r *Roster) Len() int { return len(r.entries) }

// AcquireFromImage implements Provider. The same image always maps to the
// same creature.
func (r *Roster) AcquireFromImage(ctx context.Context, image []byte, _ string) (character.Profile, error) {
	if err := ctx.Err(); err != nil {
		return character.Profile{}, wrap(OpImage, err)
	}
	if len(image) == 0 {
		return character.Profile{}, wrap(OpImage, errors.New("image is empty"))
	}
	sum := blake2b.Sum256(image)
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(r.entries))
	return r.entries[idx].Clone(), nil
}

// AcquireRandomOpponent implements Provider.
func (r *Roster) AcquireRandomOpponent(ctx context.Context) (character.Profile, error) {
	if err := ctx.Err(); err != nil {
		return character.Profile{}, wrap(OpOpponent, err)
	}
	return r.entries[r.src.Intn(len(r.entries))].Clone(), nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
