// Package seed loads workflow definitions (form templates and their
// completion requirements) from YAML and applies them to the database.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/bitfantasy/wrapflow/internal/flow/repository"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// Template is one form template declared in a definition file.
type Template struct {
	ID     string            `yaml:"id"`
	Code   string            `yaml:"code"`
	Name   string            `yaml:"name"`
	Phase  string            `yaml:"phase"`
	Schema entity.FormSchema `yaml:"schema"`
}

// Requirement declares the prerequisites of a template.
type Requirement struct {
	Template   string   `yaml:"template"`
	PhaseID    string   `yaml:"phase_id"`
	DependsOn  []string `yaml:"depends_on"`
	IsBlocking *bool    `yaml:"is_blocking"`
	Scope      string   `yaml:"scope"`
}

// Definition is the decoded content of a workflow definition file.
type Definition struct {
	Templates    []Template    `yaml:"templates"`
	Requirements []Requirement `yaml:"requirements"`
}

// Store is the slice of the form repository the loader writes through.
type Store interface {
	FindTemplateByID(ctx context.Context, id string) (*entity.FormTemplate, error)
	CreateTemplate(ctx context.Context, tpl *entity.FormTemplate) error
	CreateVersion(ctx context.Context, templateID string, schema entity.FormSchema, createdBy string) (*entity.FormVersion, error)
	ListAllRequirements(ctx context.Context) ([]entity.FormCompletionRequirement, error)
	UpsertRequirement(ctx context.Context, req *entity.FormCompletionRequirement) error
}

var _ Store = (*repository.FormRepository)(nil)

// Parse decodes and validates a definition.
func Parse(data []byte) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("seed: definition is empty")
	}
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("seed: decode definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads and parses the definition file at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Validate checks template ids and schemas, that requirements reference
// declared templates only, and that the requirements are acyclic.
func (d *Definition) Validate() error {
	declared := make(map[string]bool, len(d.Templates))
	for i, t := range d.Templates {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("seed: template %d: id is required", i)
		}
		if declared[t.ID] {
			return fmt.Errorf("seed: duplicate template %s", t.ID)
		}
		declared[t.ID] = true
		if t.Name == "" {
			return fmt.Errorf("seed: template %s: name is required", t.ID)
		}
		if err := t.Schema.Validate(); err != nil {
			return fmt.Errorf("seed: template %s: %w", t.ID, err)
		}
	}

	keys := make(map[string]bool, len(d.Requirements))
	for _, r := range d.Requirements {
		if !declared[r.Template] {
			return fmt.Errorf("seed: requirement for undeclared template %q", r.Template)
		}
		key := r.Template + "/" + r.PhaseID
		if keys[key] {
			return fmt.Errorf("seed: duplicate requirement for %s phase %q", r.Template, r.PhaseID)
		}
		keys[key] = true
		for _, dep := range r.DependsOn {
			if dep == r.Template {
				return fmt.Errorf("seed: template %s depends on itself", r.Template)
			}
			if !declared[dep] {
				return fmt.Errorf("seed: template %s depends on undeclared template %q", r.Template, dep)
			}
		}
		if r.Scope != "" && r.Scope != entity.RequirementScopePhase && r.Scope != entity.RequirementScopeTask {
			return fmt.Errorf("seed: template %s: unknown scope %q", r.Template, r.Scope)
		}
	}
	return engine.ValidateRequirements(d.requirementRows())
}

func (d *Definition) requirementRows() []entity.FormCompletionRequirement {
	rows := make([]entity.FormCompletionRequirement, 0, len(d.Requirements))
	for _, r := range d.Requirements {
		blocking := true
		if r.IsBlocking != nil {
			blocking = *r.IsBlocking
		}
		scope := r.Scope
		if scope == "" {
			scope = entity.RequirementScopePhase
		}
		rows = append(rows, entity.FormCompletionRequirement{
			TemplateID: r.Template,
			PhaseID:    r.PhaseID,
			DependsOn:  datatypes.JSONSlice[string](append([]string{}, r.DependsOn...)),
			IsBlocking: blocking,
			Scope:      scope,
		})
	}
	return rows
}

// Result summarises what Apply wrote.
type Result struct {
	TemplatesCreated    int
	TemplatesSkipped    int
	RequirementsApplied int
}

// Apply creates missing templates at version 1 and upserts every
// requirement. Existing templates are left alone: published versions are
// immutable and new ones go through the versioning endpoint.
func Apply(ctx context.Context, store Store, def *Definition, logger *zap.Logger) (*Result, error) {
	res := &Result{}
	for _, t := range def.Templates {
		_, err := store.FindTemplateByID(ctx, t.ID)
		if err == nil {
			res.TemplatesSkipped++
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("seed: find template %s: %w", t.ID, err)
		}

		now := time.Now()
		tpl := &entity.FormTemplate{
			ID:        t.ID,
			Code:      t.Code,
			Name:      t.Name,
			Phase:     t.Phase,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if tpl.Code == "" {
			tpl.Code = t.ID
		}
		if err := store.CreateTemplate(ctx, tpl); err != nil {
			return nil, fmt.Errorf("seed: create template %s: %w", t.ID, err)
		}
		if _, err := store.CreateVersion(ctx, t.ID, t.Schema, "seed"); err != nil {
			return nil, fmt.Errorf("seed: create template %s version: %w", t.ID, err)
		}
		res.TemplatesCreated++
	}

	// 与库中已有声明合并后再查环
	existing, err := store.ListAllRequirements(ctx)
	if err != nil {
		return nil, fmt.Errorf("seed: list requirements: %w", err)
	}
	rows := def.requirementRows()
	merged := make([]entity.FormCompletionRequirement, 0, len(existing)+len(rows))
	for _, e := range existing {
		replaced := false
		for _, r := range rows {
			if r.TemplateID == e.TemplateID && r.PhaseID == e.PhaseID {
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, e)
		}
	}
	merged = append(merged, rows...)
	if err := engine.ValidateRequirements(merged); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	for i := range rows {
		if err := store.UpsertRequirement(ctx, &rows[i]); err != nil {
			return nil, fmt.Errorf("seed: upsert requirement for %s: %w", rows[i].TemplateID, err)
		}
		res.RequirementsApplied++
	}

	logger.Info("workflow definition applied",
		zap.Int("templates_created", res.TemplatesCreated),
		zap.Int("templates_skipped", res.TemplatesSkipped),
		zap.Int("requirements", res.RequirementsApplied))
	return res, nil
}
