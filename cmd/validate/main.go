package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/actor"
	"github.com/jwebster45206/npc-engine/pkg/dialogue"
	"gopkg.in/yaml.v3"
)

func main() {
	paths := os.Args[1:]
	if len(paths) == 0 {
		paths = []string{"./data"}
	}

	validator := NewContentValidator()
	for _, p := range paths {
		if err := validator.validatePath(p); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
	}

	if len(validator.failures) > 0 {
		fmt.Fprintf(os.Stderr, "Validation failed:\n%s\n", strings.Join(validator.failures, "\n"))
		os.Exit(1)
	}

	fmt.Printf("%d content files are valid!\n", validator.checked)
}

type contentKind int

const (
	kindUnknown contentKind = iota
	kindCharacter
	kindPlayer
	kindDialogue
)

// ContentValidator strictly checks authored characters, the player file and
// dialogue trees. Cross-file rules (unique character ids and tree names) are
// checked across every file it sees.
type ContentValidator struct {
	failures     []string
	errors       []string
	checked      int
	characterIDs map[int]string
	library      *dialogue.Library
}

func NewContentValidator() *ContentValidator {
	return &ContentValidator{
		characterIDs: make(map[int]string),
		library:      dialogue.NewLibrary(true),
	}
}

// validatePath validates a file, or every content file under a directory.
func (v *ContentValidator) validatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		v.recordFile(path)
		return nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isContentExt(filepath.Ext(p)) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", path, err)
	}
	slices.Sort(files)
	for _, f := range files {
		v.recordFile(f)
	}
	return nil
}

func (v *ContentValidator) recordFile(filename string) {
	v.checked++
	if err := v.validateFile(filename); err != nil {
		v.failures = append(v.failures, err.Error())
	}
}

func (v *ContentValidator) validateFile(filename string) error {
	baseName := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(baseName))
	if !isContentExt(ext) {
		return fmt.Errorf("%s: content files must be .yaml, .yml or .json", filename)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidFilename(nameWithoutExt) {
		return fmt.Errorf("%s: filename must be lowercase snake_case (e.g., old_mira.yaml, not Old-Mira.yaml)", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	switch classify(filename) {
	case kindCharacter:
		v.validateCharacter(data, ext)
	case kindPlayer:
		v.validatePlayer(data, ext)
	case kindDialogue:
		v.validateDialogue(data, ext)
	default:
		return fmt.Errorf("%s: not under characters/ or dialogue/ and not a player file", filename)
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func classify(path string) contentKind {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if base == "player" {
		return kindPlayer
	}
	parts := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")
	switch {
	case slices.Contains(parts, "dialogue"):
		return kindDialogue
	case slices.Contains(parts, "characters"):
		return kindCharacter
	}
	return kindUnknown
}

func (v *ContentValidator) validateCharacter(data []byte, ext string) {
	var spec actor.CharacterSpec
	if err := strictDecode(data, ext, &spec); err != nil {
		v.addError(err.Error())
		return
	}
	c, err := actor.NewCharacterFromSpec(&spec)
	if err != nil {
		v.addError(err.Error())
		return
	}
	if prev, ok := v.characterIDs[c.ID]; ok {
		v.addError(fmt.Sprintf("character id %d is already used by %q", c.ID, prev))
	} else {
		v.characterIDs[c.ID] = c.Name
	}
	for _, t := range c.Personality.Traits {
		v.validateIDFormat("trait", t)
	}
	for _, e := range c.Schedule {
		v.validateIDFormat("schedule location", e.Location)
	}
}

func (v *ContentValidator) validatePlayer(data []byte, ext string) {
	var spec actor.PlayerSpec
	if err := strictDecode(data, ext, &spec); err != nil {
		v.addError(err.Error())
		return
	}
	if _, err := actor.NewPlayerFromSpec(&spec); err != nil {
		v.addError(err.Error())
	}
}

func (v *ContentValidator) validateDialogue(data []byte, ext string) {
	t, err := dialogue.DecodeTree(data, ext, true)
	if err != nil {
		v.addError(err.Error())
		return
	}
	if err := t.Validate(); err != nil {
		v.addError(err.Error())
		return
	}
	for _, ref := range t.DanglingReferences() {
		v.addError("dangling reference: " + ref)
	}

	v.validateFlags("required flag", t.RequiredFlags)
	v.validateFlags("start flag", t.StartFlags)
	for _, n := range t.Nodes {
		v.validateIDFormat("node ID", n.ID)
		v.validateFlags("node flag", n.SetFlags)
		for _, o := range n.Options {
			v.validateFlags("option flag", o.SetFlags)
			if o.Quest != "" {
				v.validateIDFormat("quest", o.Quest)
			}
		}
	}

	if len(v.errors) > 0 {
		return
	}
	if _, err := v.library.Add(t); err != nil {
		v.addError(err.Error())
	}
}

func (v *ContentValidator) validateFlags(fieldName string, flags []string) {
	for _, f := range flags {
		if f == "" {
			v.addError(fieldName + " is empty")
			continue
		}
		v.validateIDFormat(fieldName, f)
	}
}

func (v *ContentValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *ContentValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func strictDecode(data []byte, ext string, out any) error {
	switch ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("failed strict YAML unmarshaling: %w", err)
		}
	default:
		if !json.Valid(data) {
			return fmt.Errorf("file contains invalid JSON")
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("failed strict JSON unmarshaling: %w", err)
		}
	}
	return nil
}

func isContentExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidFilename(name string) bool {
	// Allow 'x.' prefix for experimental content
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
