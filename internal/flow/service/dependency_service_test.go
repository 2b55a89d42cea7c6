package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bitfantasy/wrapflow/internal/flow/engine"
	"github.com/bitfantasy/wrapflow/internal/flow/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

func TestGetDependencyGraph(t *testing.T) {
	fx := newFixture()
	res, err := fx.deps.GetDependencyGraph(context.Background(), "proj-001")
	require.NoError(t, err)
	require.Len(t, res.Nodes, 3)
	assert.Equal(t, "f-brief", res.Nodes[0].FormID)
	assert.Equal(t, []string{"f-proof"}, res.Nodes[0].Dependents)
	assert.Empty(t, res.Warnings)

	_, err = fx.deps.GetDependencyGraph(context.Background(), "proj-404")
	assert.True(t, errors.Is(err, engine.ErrNotFound))
}

func TestGetDependencyGraphSurfacesDanglingDependency(t *testing.T) {
	fx := newFixture()
	fx.forms.requirements = append(fx.forms.requirements, entity.FormCompletionRequirement{
		ID: "req-brief", TemplateID: "tpl-brief", DependsOn: datatypes.JSONSlice[string]{"tpl-survey"}, IsBlocking: true,
	})

	res, err := fx.deps.GetDependencyGraph(context.Background(), "proj-001")
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "tpl-survey", res.Warnings[0].MissingTemplateID)

	strict := NewDependencyService(fx.projects, fx.forms, Options{StrictGraph: true}, zap.NewNop())
	_, err = strict.GetDependencyGraph(context.Background(), "proj-001")
	assert.True(t, errors.Is(err, engine.ErrIntegrity))
}

func TestGetDependencyGraphRejectsStoredCycle(t *testing.T) {
	fx := newFixture()
	fx.forms.requirements = append(fx.forms.requirements, entity.FormCompletionRequirement{
		ID: "req-brief", TemplateID: "tpl-brief", DependsOn: datatypes.JSONSlice[string]{"tpl-print"}, IsBlocking: true,
	})
	_, err := fx.deps.GetDependencyGraph(context.Background(), "proj-001")
	assert.True(t, errors.Is(err, engine.ErrIntegrity))
}

func TestGetFormDependencyView(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	view, err := fx.deps.GetFormDependencyView(ctx, "proj-001", "f-print")
	require.NoError(t, err)
	require.Len(t, view.BlockingDependencies, 1)
	assert.Equal(t, "f-proof", view.BlockingDependencies[0].FormID)
	assert.False(t, view.CanProceed)

	// graphs are rebuilt per call, so a status change is visible immediately
	fx.forms.instances[1].Status = entity.FormStatusCompleted
	view, err = fx.deps.GetFormDependencyView(ctx, "proj-001", "f-print")
	require.NoError(t, err)
	assert.True(t, view.CanProceed)

	_, err = fx.deps.GetFormDependencyView(ctx, "proj-001", "f-other")
	assert.True(t, errors.Is(err, engine.ErrFormNotInGraph))
}

func TestGetReadyFormsAndCompletionOrder(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	ready, err := fx.deps.GetReadyForms(ctx, "proj-001")
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "f-proof", ready[0].FormID)

	order, err := fx.deps.GetCompletionOrder(ctx, "proj-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"f-brief", "f-proof", "f-print"}, order)

	ready, err = fx.deps.GetReadyForms(ctx, "proj-002")
	require.NoError(t, err)
	assert.Len(t, ready, 1)
}

func TestUpdateFormDependencies(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	req, err := fx.deps.UpdateFormDependencies(ctx, UpdateDependenciesInput{
		TemplateID: "tpl-print",
		DependsOn:  []string{"tpl-proof", "tpl-brief", "tpl-proof"},
		IsBlocking: false,
	})
	require.NoError(t, err)
	assert.Equal(t, "req-print", req.ID)
	assert.Equal(t, []string{"tpl-proof", "tpl-brief"}, []string(req.DependsOn))
	assert.Equal(t, entity.RequirementScopePhase, req.Scope)

	res, err := fx.deps.GetDependencyGraph(ctx, "proj-001")
	require.NoError(t, err)
	assert.Equal(t, []string{"f-proof", "f-brief"}, res.Nodes[2].Dependencies)
	assert.False(t, res.Nodes[2].IsBlocking)
}

func TestUpdateFormDependenciesConcurrentOppositeEdges(t *testing.T) {
	fx := newFixture()
	fx.forms.requirements = nil
	ctx := context.Background()

	// each update is acyclic on its own; together they close brief <-> proof
	inputs := []UpdateDependenciesInput{
		{TemplateID: "tpl-brief", DependsOn: []string{"tpl-proof"}, IsBlocking: true},
		{TemplateID: "tpl-proof", DependsOn: []string{"tpl-brief"}, IsBlocking: true},
	}
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.deps.UpdateFormDependencies(ctx, inputs[i])
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			assert.True(t, errors.Is(err, engine.ErrIntegrity), "got %v", err)
		}
	}
	assert.Equal(t, 1, failed)
	assert.Len(t, fx.forms.requirements, 1)
	assert.NoError(t, engine.ValidateRequirements(fx.forms.requirements))
}

func TestUpdateFormDependenciesRejectsBadInput(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	before := len(fx.forms.requirements)

	cases := []struct {
		name string
		in   UpdateDependenciesInput
		want error
	}{
		{"missing template", UpdateDependenciesInput{DependsOn: []string{"tpl-brief"}}, engine.ErrValidation},
		{"empty dependency id", UpdateDependenciesInput{TemplateID: "tpl-print", DependsOn: []string{" "}}, engine.ErrValidation},
		{"self dependency", UpdateDependenciesInput{TemplateID: "tpl-print", DependsOn: []string{"tpl-print"}}, engine.ErrValidation},
		{"unknown scope", UpdateDependenciesInput{TemplateID: "tpl-print", Scope: "PROJECT"}, engine.ErrValidation},
		{"unknown template", UpdateDependenciesInput{TemplateID: "tpl-ghost"}, engine.ErrNotFound},
		{"unknown dependency", UpdateDependenciesInput{TemplateID: "tpl-print", DependsOn: []string{"tpl-ghost"}}, engine.ErrNotFound},
		{"cycle", UpdateDependenciesInput{TemplateID: "tpl-brief", DependsOn: []string{"tpl-print"}}, engine.ErrIntegrity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.deps.UpdateFormDependencies(ctx, tc.in)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
	assert.Len(t, fx.forms.requirements, before)
}
