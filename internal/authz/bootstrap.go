package authz

import "fmt"

// RoleSeed 预置角色定义
type RoleSeed struct {
	Role      string
	Inherits  []string
	Policies  []Policy
	Immutable bool
}

// BuiltinRoleSeeds 系统预置角色矩阵
// 角色名与用户表 role 字段一一对应。
func BuiltinRoleSeeds() []RoleSeed {
	return []RoleSeed{
		{
			Role: "student",
			Policies: []Policy{
				{Object: "/bookings", Action: "GET"},
				{Object: "/bookings", Action: "POST"},
				{Object: "/bookings/:id", Action: "GET"},
				{Object: "/bookings/:id/attend", Action: "POST"},
				{Object: "/rewards/balance", Action: "GET"},
				{Object: "/rewards/transactions", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role: "ngo",
			Policies: []Policy{
				{Object: "/surplus", Action: "GET"},
				{Object: "/surplus/:id", Action: "GET"},
				{Object: "/surplus/:id/claim", Action: "POST"},
				{Object: "/surplus/:id/collect", Action: "POST"},
				{Object: "/surplus/my-claims", Action: "GET"},
				{Object: "/rewards/balance", Action: "GET"},
				{Object: "/rewards/transactions", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role: "mess_staff",
			Policies: []Policy{
				{Object: "/surplus", Action: "GET"},
				{Object: "/surplus", Action: "POST"},
				{Object: "/surplus/:id", Action: "GET"},
			},
			Immutable: true,
		},
		{
			Role: "admin",
			Policies: []Policy{
				{Object: "/admin/*", Action: "*"},
				{Object: "/surplus", Action: "GET"},
				{Object: "/surplus/:id", Action: "GET"},
			},
			Immutable: true,
		},
	}
}

// BootstrapBuiltinRoles 初始化预置角色与默认策略
func (s *Service) BootstrapBuiltinRoles() error {
	if s == nil || s.enforcer == nil {
		return fmt.Errorf("authz service unavailable")
	}

	changed := false
	for _, seed := range BuiltinRoleSeeds() {
		role, err := NormalizeRole(seed.Role)
		if err != nil {
			return err
		}

		exists, err := s.enforcer.HasNamedGroupingPolicy("g", role, roleAnchor)
		if err != nil {
			return fmt.Errorf("check builtin role failed: %w", err)
		}
		if !exists {
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, roleAnchor)
			if err != nil {
				return fmt.Errorf("create builtin role failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, parent := range seed.Inherits {
			parentRole, err := NormalizeRole(parent)
			if err != nil {
				return err
			}
			added, err := s.enforcer.AddNamedGroupingPolicy("g", role, parentRole)
			if err != nil {
				return fmt.Errorf("link role inheritance failed: %w", err)
			}
			if added {
				changed = true
			}
		}

		for _, policy := range seed.Policies {
			action := NormalizeAction(policy.Action)
			if action == "" {
				return fmt.Errorf("builtin policy action is required")
			}
			added, err := s.enforcer.AddPolicy(role, NormalizeObject(policy.Object), action)
			if err != nil {
				return fmt.Errorf("add builtin policy failed: %w", err)
			}
			if added {
				changed = true
			}
		}
	}

	if changed {
		return s.saveAndReload()
	}
	return nil
}
