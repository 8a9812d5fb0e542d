package models

// Role 档案角色（闭合枚举）
// 角色只允许这三种取值，校验层拒绝其它值，权限门控按枚举穷举判断
type Role string

const (
	// RoleAdministrator 管理员：可管理用户账号及全部数据
	RoleAdministrator Role = "administrator"
	// RoleManager 财务经理：可读写业务数据，不可管理账号
	RoleManager Role = "manager"
	// RoleViewer 只读用户
	RoleViewer Role = "viewer"
)

// Valid 检查角色是否为合法取值
func (r Role) Valid() bool {
	switch r {
	case RoleAdministrator, RoleManager, RoleViewer:
		return true
	}
	return false
}
