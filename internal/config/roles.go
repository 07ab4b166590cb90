package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
)

// Role names a semantic account used by event posting and reports.
type Role string

const (
	RoleCash             Role = "cash"
	RoleBank             Role = "bank"
	RoleReceivable       Role = "receivable"
	RoleInventory        Role = "inventory"
	RolePayable          Role = "payable"
	RoleRetainedEarnings Role = "retained_earnings"
	RoleSales            Role = "sales"
	RoleCOGS             Role = "cogs"
)

// roleTypes fixes the account type each role must point at.
var roleTypes = map[Role]ledger.AccountType{
	RoleCash:             ledger.AccountTypeAsset,
	RoleBank:             ledger.AccountTypeAsset,
	RoleReceivable:       ledger.AccountTypeAsset,
	RoleInventory:        ledger.AccountTypeAsset,
	RolePayable:          ledger.AccountTypeLiability,
	RoleRetainedEarnings: ledger.AccountTypeEquity,
	RoleSales:            ledger.AccountTypeRevenue,
	RoleCOGS:             ledger.AccountTypeExpense,
}

// Roles maps semantic roles to account codes.
type Roles struct {
	Accounts map[Role]string `yaml:"roles"`
}

// DefaultRoles matches the seeded retail chart.
func DefaultRoles() Roles {
	return Roles{Accounts: map[Role]string{
		RoleCash:             "1000",
		RoleBank:             "1010",
		RoleReceivable:       "1100",
		RoleInventory:        "1200",
		RolePayable:          "2100",
		RoleRetainedEarnings: "3100",
		RoleSales:            "4000",
		RoleCOGS:             "5000",
	}}
}

// Code returns the account code bound to r.
func (r Roles) Code(role Role) string { return r.Accounts[role] }

// Bound reports whether code is bound to any role.
func (r Roles) Bound(code string) (Role, bool) {
	for role, c := range r.Accounts {
		if c == code {
			return role, true
		}
	}
	return "", false
}

// Validate checks that every role is bound to a code of the expected type.
func (r Roles) Validate() error {
	names := make([]string, 0, len(roleTypes))
	for role := range roleTypes {
		names = append(names, string(role))
	}
	sort.Strings(names)
	for _, name := range names {
		role := Role(name)
		code, ok := r.Accounts[role]
		if !ok || code == "" {
			return &errs.ConfigurationError{Reason: "role " + name + " is not mapped"}
		}
		t, err := ledger.TypeForCode(code)
		if err != nil {
			return &errs.ConfigurationError{Reason: "role " + name + ": " + err.Error()}
		}
		if t != roleTypes[role] {
			return &errs.ConfigurationError{Reason: fmt.Sprintf("role %s maps to %s account %s, want %s", name, t, code, roleTypes[role])}
		}
	}
	return nil
}

// LoadRoles reads a role mapping YAML file. Roles missing from the file keep their defaults.
func LoadRoles(path string) (Roles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Roles{}, fmt.Errorf("reading roles: %w", err)
	}
	var file Roles
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Roles{}, fmt.Errorf("parsing roles: %w", err)
	}
	roles := DefaultRoles()
	for role, code := range file.Accounts {
		roles.Accounts[role] = code
	}
	if err := roles.Validate(); err != nil {
		return Roles{}, err
	}
	return roles, nil
}

// SaveRoles writes r as YAML.
func SaveRoles(path string, r Roles) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling roles: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing roles: %w", err)
	}
	return nil
}

// ResolveRoles returns the file mapping when path is set, else the defaults.
func ResolveRoles(path string) (Roles, error) {
	if path == "" {
		return DefaultRoles(), nil
	}
	return LoadRoles(path)
}
