package shared

// Protected resources.
const (
	ResourceArticle = "article"
	ResourceUser    = "user"
	ResourceRole    = "role"
	ResourceSetting = "setting"
	ResourceComment = "comment"
	ResourceAudit   = "audit"
)

// Actions that can be granted on a resource.
const (
	ActionCreate   = "create"
	ActionRead     = "read"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionSubmit   = "submit"
	ActionApprove  = "approve"
	ActionPublish  = "publish"
	ActionManage   = "manage"
	ActionModerate = "moderate"
)

// Scope is a (resource, action) capability.
type Scope struct {
	Resource string
	Action   string
}

// Name renders the scope as the permission name stored in the permissions table.
func (s Scope) Name() string {
	return s.Resource + "." + s.Action
}

// Core platform permissions.
var (
	PermArticleCreate  = Scope{ResourceArticle, ActionCreate}
	PermArticleRead    = Scope{ResourceArticle, ActionRead}
	PermArticleUpdate  = Scope{ResourceArticle, ActionUpdate}
	PermArticleDelete  = Scope{ResourceArticle, ActionDelete}
	PermArticleSubmit  = Scope{ResourceArticle, ActionSubmit}
	PermArticleApprove = Scope{ResourceArticle, ActionApprove}
	PermArticlePublish = Scope{ResourceArticle, ActionPublish}

	PermUserRead   = Scope{ResourceUser, ActionRead}
	PermUserCreate = Scope{ResourceUser, ActionCreate}
	PermUserUpdate = Scope{ResourceUser, ActionUpdate}
	PermUserDelete = Scope{ResourceUser, ActionDelete}

	PermRoleRead   = Scope{ResourceRole, ActionRead}
	PermRoleManage = Scope{ResourceRole, ActionManage}

	PermSettingRead   = Scope{ResourceSetting, ActionRead}
	PermSettingUpdate = Scope{ResourceSetting, ActionUpdate}

	PermCommentModerate = Scope{ResourceComment, ActionModerate}

	PermAuditRead = Scope{ResourceAudit, ActionRead}
)

// CoreScopes lists every permission seeded at bootstrap.
func CoreScopes() []Scope {
	return []Scope{
		PermArticleCreate,
		PermArticleRead,
		PermArticleUpdate,
		PermArticleDelete,
		PermArticleSubmit,
		PermArticleApprove,
		PermArticlePublish,
		PermUserRead,
		PermUserCreate,
		PermUserUpdate,
		PermUserDelete,
		PermRoleRead,
		PermRoleManage,
		PermSettingRead,
		PermSettingUpdate,
		PermCommentModerate,
		PermAuditRead,
	}
}
