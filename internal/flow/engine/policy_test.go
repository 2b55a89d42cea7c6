package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	cases := []struct {
		role     Role
		action   Action
		resource Resource
		allowed  bool
	}{
		{RoleAdmin, ActionEditDependencies, ResourceTemplate, true},
		{RoleAdmin, ActionEditDependencies, ResourceForm, false},
		{RoleManager, ActionSchedule, ResourceTask, true},
		{RoleManager, ActionManageTemplates, ResourceTemplate, true},
		{RoleOperator, ActionTransition, ResourceForm, true},
		{RoleOperator, ActionRecordActuals, ResourceTask, true},
		{RoleOperator, ActionSchedule, ResourceTask, false},
		{RoleOperator, ActionEditDependencies, ResourceTemplate, false},
		{RoleViewer, ActionRead, ResourceProject, true},
		{RoleViewer, ActionSubmit, ResourceForm, false},
		{Role("intern"), ActionRead, ResourceProject, false},
		{Role(""), ActionRead, ResourceProject, false},
	}
	for _, tc := range cases {
		d := Authorize(tc.role, tc.action, tc.resource)
		assert.Equal(t, tc.allowed, d.Allowed, "%s %s %s", tc.role, tc.action, tc.resource)
		if !d.Allowed {
			assert.NotEmpty(t, d.Reason)
		}
	}
}

func TestHighestRole(t *testing.T) {
	assert.Equal(t, RoleManager, HighestRole([]string{"viewer", "manager", "operator"}))
	assert.Equal(t, RoleAdmin, HighestRole([]string{"admin", "viewer"}))
	assert.Equal(t, RoleViewer, HighestRole([]string{"guest", "viewer"}))
	assert.Equal(t, Role(""), HighestRole(nil))
}
