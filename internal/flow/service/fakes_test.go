package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/bitfantasy/wrapflow/internal/flow/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type fakeProjects struct {
	projects map[string]entity.Project
}

func (f *fakeProjects) FindByID(_ context.Context, id string) (*entity.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

type fakeForms struct {
	mu           sync.Mutex
	templates    map[string]entity.FormTemplate
	versions     map[string]entity.FormVersion
	instances    []entity.FormInstance
	responses    map[string][]entity.FormResponse
	requirements []entity.FormCompletionRequirement
	logs         []entity.FormStatusLog
	statusWrites int
}

func newFakeForms() *fakeForms {
	return &fakeForms{
		templates: map[string]entity.FormTemplate{},
		versions:  map[string]entity.FormVersion{},
		responses: map[string][]entity.FormResponse{},
	}
}

func versionKey(tpl string, v int) string { return fmt.Sprintf("%s@v%d", tpl, v) }

func (f *fakeForms) FindTemplateByID(_ context.Context, id string) (*entity.FormTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeForms) FindTemplatesByIDs(_ context.Context, ids []string) ([]entity.FormTemplate, error) {
	var out []entity.FormTemplate
	for _, id := range ids {
		if t, ok := f.templates[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeForms) FindVersion(_ context.Context, templateID string, version int) (*entity.FormVersion, error) {
	v, ok := f.versions[versionKey(templateID, version)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (f *fakeForms) CreateVersion(_ context.Context, templateID string, schema entity.FormSchema, createdBy string) (*entity.FormVersion, error) {
	t, ok := f.templates[templateID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t.CurrentVersion++
	f.templates[templateID] = t
	v := entity.FormVersion{ID: versionKey(templateID, t.CurrentVersion), TemplateID: templateID, Version: t.CurrentVersion, Schema: datatypes.NewJSONType(schema), CreatedBy: createdBy}
	f.versions[v.ID] = v
	return &v, nil
}

func (f *fakeForms) FindInstanceByID(_ context.Context, id string) (*entity.FormInstance, error) {
	for _, inst := range f.instances {
		if inst.ID == id {
			inst := inst
			return &inst, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeForms) FindInstancesByIDs(_ context.Context, ids []string) ([]entity.FormInstance, error) {
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []entity.FormInstance
	for _, inst := range f.instances {
		if want[inst.ID] {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeForms) ListInstancesByProject(_ context.Context, projectID string) ([]entity.FormInstance, error) {
	var out []entity.FormInstance
	for _, inst := range f.instances {
		if inst.ProjectID == projectID {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (f *fakeForms) UpdateStatuses(_ context.Context, instances []entity.FormInstance, status, operatorID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := map[string]int{}
	for i, inst := range f.instances {
		idx[inst.ID] = i
	}
	for _, inst := range instances {
		if _, ok := idx[inst.ID]; !ok {
			return "", repository.ErrNotFound
		}
	}
	for _, inst := range instances {
		f.logs = append(f.logs, entity.FormStatusLog{InstanceID: inst.ID, FromStatus: f.instances[idx[inst.ID]].Status, ToStatus: status, OperatorID: operatorID, BatchID: "batch-1"})
		f.instances[idx[inst.ID]].Status = status
	}
	f.statusWrites++
	return "batch-1", nil
}

func (f *fakeForms) LatestResponse(_ context.Context, instanceID string) (*entity.FormResponse, error) {
	rs := f.responses[instanceID]
	if len(rs) == 0 {
		return nil, nil
	}
	r := rs[len(rs)-1]
	return &r, nil
}

func (f *fakeForms) LatestResponses(ctx context.Context, instanceIDs []string) (map[string]*entity.FormResponse, error) {
	out := map[string]*entity.FormResponse{}
	for _, id := range instanceIDs {
		if r, _ := f.LatestResponse(ctx, id); r != nil {
			out[id] = r
		}
	}
	return out, nil
}

func (f *fakeForms) AppendResponse(_ context.Context, resp *entity.FormResponse) error {
	resp.Seq = len(f.responses[resp.InstanceID]) + 1
	f.responses[resp.InstanceID] = append(f.responses[resp.InstanceID], *resp)
	return nil
}

func (f *fakeForms) ListResponses(_ context.Context, instanceID string) ([]entity.FormResponse, error) {
	rs := f.responses[instanceID]
	out := make([]entity.FormResponse, 0, len(rs))
	for i := len(rs) - 1; i >= 0; i-- {
		out = append(out, rs[i])
	}
	return out, nil
}

func (f *fakeForms) ListRequirements(_ context.Context, templateIDs []string) ([]entity.FormCompletionRequirement, error) {
	want := map[string]bool{}
	for _, id := range templateIDs {
		want[id] = true
	}
	var out []entity.FormCompletionRequirement
	for _, r := range f.requirements {
		if want[r.TemplateID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeForms) ReplaceRequirement(_ context.Context, req *entity.FormCompletionRequirement, check func([]entity.FormCompletionRequirement) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := check(append([]entity.FormCompletionRequirement(nil), f.requirements...)); err != nil {
		return err
	}
	f.upsertRequirement(req)
	return nil
}

func (f *fakeForms) upsertRequirement(req *entity.FormCompletionRequirement) {
	for i, r := range f.requirements {
		if r.TemplateID == req.TemplateID && r.PhaseID == req.PhaseID {
			f.requirements[i] = *req
			return
		}
	}
	if req.ID == "" {
		req.ID = "req-" + req.TemplateID
	}
	f.requirements = append(f.requirements, *req)
}

func (f *fakeForms) status(id string) string {
	for _, inst := range f.instances {
		if inst.ID == id {
			return inst.Status
		}
	}
	return ""
}

type fakeTasks struct {
	tasks  map[string]entity.ProjectTask
	writes int
}

func (f *fakeTasks) FindByID(_ context.Context, id string) (*entity.ProjectTask, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (f *fakeTasks) ListByProject(_ context.Context, projectID string) ([]entity.ProjectTask, error) {
	var out []entity.ProjectTask
	for _, id := range []string{"task-print", "task-laminate", "task-install"} {
		if t, ok := f.tasks[id]; ok && t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) UpdateSchedule(_ context.Context, task *entity.ProjectTask) error {
	f.writes++
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeTasks) UpdateActuals(_ context.Context, task *entity.ProjectTask) error {
	f.writes++
	f.tasks[task.ID] = *task
	return nil
}

// countingCache records hits and misses around a map.
type countingCache struct {
	entries map[string]entity.FormSchema
	hits    int
	misses  int
}

func (c *countingCache) Get(_ context.Context, templateID string, version int) (*entity.FormSchema, bool) {
	s, ok := c.entries[versionKey(templateID, version)]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return &s, true
}

func (c *countingCache) Set(_ context.Context, templateID string, version int, schema entity.FormSchema) {
	c.entries[versionKey(templateID, version)] = schema
}

func vinSchema() entity.FormSchema {
	return entity.FormSchema{Sections: []entity.FormSection{{
		Key: "main",
		Fields: []entity.FormField{
			{Key: "vin", Label: "VIN", Type: entity.FieldText, Required: true},
			{Key: "notes", Label: "Notes", Type: entity.FieldTextarea},
		},
	}}}
}

// fixture is a wrap job with brief → proof → print; brief is COMPLETED.
type fixture struct {
	projects *fakeProjects
	forms    *fakeForms
	tasks    *fakeTasks
	cache    *countingCache
	deps     *DependencyService
	form     *FormService
	schedule *ScheduleService
}

func newFixture() *fixture {
	forms := newFakeForms()
	for _, tpl := range []string{"tpl-brief", "tpl-proof", "tpl-print", "tpl-notes"} {
		forms.templates[tpl] = entity.FormTemplate{ID: tpl, Code: tpl, Name: tpl, CurrentVersion: 1}
		forms.versions[versionKey(tpl, 1)] = entity.FormVersion{ID: tpl + "-v1", TemplateID: tpl, Version: 1, Schema: datatypes.NewJSONType(vinSchema())}
	}
	forms.instances = []entity.FormInstance{
		{ID: "f-brief", ProjectID: "proj-001", TemplateID: "tpl-brief", Version: 1, Name: "Design brief", Status: entity.FormStatusCompleted},
		{ID: "f-proof", ProjectID: "proj-001", TemplateID: "tpl-proof", Version: 1, Name: "Proof approval", Status: entity.FormStatusDraft},
		{ID: "f-print", ProjectID: "proj-001", TemplateID: "tpl-print", Version: 1, Name: "Print run", Status: entity.FormStatusDraft},
		{ID: "f-other", ProjectID: "proj-002", TemplateID: "tpl-notes", Version: 1, Name: "Other job notes", Status: entity.FormStatusDraft},
	}
	forms.requirements = []entity.FormCompletionRequirement{
		{ID: "req-proof", TemplateID: "tpl-proof", DependsOn: datatypes.JSONSlice[string]{"tpl-brief"}, IsBlocking: true, Scope: entity.RequirementScopePhase},
		{ID: "req-print", TemplateID: "tpl-print", DependsOn: datatypes.JSONSlice[string]{"tpl-proof"}, IsBlocking: true, Scope: entity.RequirementScopePhase},
	}
	projects := &fakeProjects{projects: map[string]entity.Project{
		"proj-001": {ID: "proj-001", Code: "WRAP-001", Name: "Fleet van wrap"},
		"proj-002": {ID: "proj-002", Code: "WRAP-002", Name: "Food truck wrap"},
	}}
	tasks := &fakeTasks{tasks: map[string]entity.ProjectTask{}}
	cache := &countingCache{entries: map[string]entity.FormSchema{}}

	logger := zap.NewNop()
	deps := NewDependencyService(projects, forms, Options{}, logger)
	return &fixture{
		projects: projects,
		forms:    forms,
		tasks:    tasks,
		cache:    cache,
		deps:     deps,
		form:     NewFormService(forms, deps, cache, logger),
		schedule: NewScheduleService(projects, tasks, engine.DefaultCalendar, logger),
	}
}

var (
	_ ProjectStore = (*fakeProjects)(nil)
	_ FormStore    = (*fakeForms)(nil)
	_ TaskStore    = (*fakeTasks)(nil)
	_ SchemaCache  = (*countingCache)(nil)
)
