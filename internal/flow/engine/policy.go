package engine

// Role of the acting user, as supplied by the authentication layer.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// Action is an engine operation subject to authorization.
type Action string

const (
	ActionRead             Action = "read"
	ActionEditDependencies Action = "edit_dependencies"
	ActionTransition       Action = "transition"
	ActionSubmit           Action = "submit"
	ActionSchedule         Action = "schedule"
	ActionRecordActuals    Action = "record_actuals"
	ActionManageTemplates  Action = "manage_templates"
)

// Resource is the kind of record an action touches.
type Resource string

const (
	ResourceProject  Resource = "project"
	ResourceForm     Resource = "form"
	ResourceTemplate Resource = "template"
	ResourceTask     Resource = "task"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

var grants = map[Role]map[Action]bool{
	RoleManager: {
		ActionRead: true, ActionEditDependencies: true, ActionTransition: true, ActionSubmit: true,
		ActionSchedule: true, ActionRecordActuals: true, ActionManageTemplates: true,
	},
	RoleOperator: {
		ActionRead: true, ActionTransition: true, ActionSubmit: true, ActionRecordActuals: true,
	},
	RoleViewer: {
		ActionRead: true,
	},
}

// templateOnly lists actions that only make sense on templates.
var templateOnly = map[Action]bool{
	ActionEditDependencies: true,
	ActionManageTemplates:  true,
}

// Authorize is the single authorization policy for engine operations.
func Authorize(role Role, action Action, resource Resource) Decision {
	if templateOnly[action] && resource != ResourceTemplate {
		return Decision{Reason: string(action) + " applies to templates only"}
	}
	if role == RoleAdmin {
		return Decision{Allowed: true}
	}
	if grants[role][action] {
		return Decision{Allowed: true}
	}
	if _, known := grants[role]; !known {
		return Decision{Reason: "unknown role " + string(role)}
	}
	return Decision{Reason: "role " + string(role) + " may not " + string(action) + " " + string(resource)}
}

// HighestRole picks the most privileged known role from a claim list.
func HighestRole(roles []string) Role {
	best, rank := Role(""), 0
	order := map[Role]int{RoleViewer: 1, RoleOperator: 2, RoleManager: 3, RoleAdmin: 4}
	for _, r := range roles {
		if n := order[Role(r)]; n > rank {
			best, rank = Role(r), n
		}
	}
	return best
}
