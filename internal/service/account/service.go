// Package account implements chart-of-accounts rules: code/type agreement, unique codes,
// acyclic parent links, soft deletes and code generation.
package account

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/shopledger/internal/config"
	"github.com/tinoosan/shopledger/internal/dictionary"
	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/storage"
)

// Spec describes an account to create. Code or Type may be omitted, not both.
type Spec struct {
	Code        string
	Name        string
	Type        ledger.AccountType
	Subtype     string
	ParentCode  string
	Description string
}

// Patch carries the editable fields; nil leaves a field unchanged.
// An empty ParentCode detaches the account from its parent.
type Patch struct {
	Name        *string
	Description *string
	Subtype     *string
	ParentCode  *string
}

// ChartNode is an account with its active children, for display.
type ChartNode struct {
	Account  ledger.Account
	Children []ChartNode
}

type Service interface {
	Create(ctx context.Context, spec Spec) (ledger.Account, error)
	Get(ctx context.Context, code string) (ledger.Account, error)
	List(ctx context.Context, f storage.AccountFilter) ([]ledger.Account, error)
	Update(ctx context.Context, code string, p Patch) (ledger.Account, error)
	Deactivate(ctx context.Context, code string) error
	CashAndBank(ctx context.Context) ([]ledger.Account, error)
	Chart(ctx context.Context) ([]ChartNode, error)
	SeedDefaults(ctx context.Context) (int, error)
}

type service struct {
	store storage.Store
	roles config.Roles
	now   func() time.Time
}

func New(store storage.Store, roles config.Roles) Service {
	return &service{store: store, roles: roles, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) Create(ctx context.Context, spec Spec) (ledger.Account, error) {
	var created ledger.Account
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		a, err := s.create(ctx, tx, spec)
		created = a
		return err
	})
	return created, err
}

func (s *service) create(ctx context.Context, tx storage.Tx, spec Spec) (ledger.Account, error) {
	spec.Code = strings.TrimSpace(spec.Code)
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return ledger.Account{}, errs.Invalid("name", "required")
	}
	if spec.Type == "" {
		if spec.Code == "" {
			return ledger.Account{}, errs.Invalid("type", "required when code is omitted")
		}
		t, err := ledger.TypeForCode(spec.Code)
		if err != nil {
			return ledger.Account{}, err
		}
		spec.Type = t
	}
	if !spec.Type.Valid() {
		return ledger.Account{}, errs.Invalid("type", "unknown account type")
	}
	if spec.Code == "" {
		code, err := nextCode(ctx, tx, spec.Type)
		if err != nil {
			return ledger.Account{}, err
		}
		spec.Code = code
	}
	subtype := dictionary.Normalize(spec.Subtype)
	if subtype != "" && !dictionary.IsValid(subtype) {
		return ledger.Account{}, errs.Invalid("subtype", "must be 2-40 characters of a-z, 0-9 or _")
	}

	now := s.now()
	a := ledger.Account{
		ID:          uuid.New(),
		Code:        spec.Code,
		Name:        spec.Name,
		Type:        spec.Type,
		Subtype:     subtype,
		Status:      ledger.StatusActive,
		Description: strings.TrimSpace(spec.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.ValidateCode(); err != nil {
		return ledger.Account{}, err
	}
	if spec.ParentCode != "" {
		parent, err := resolveParent(ctx, tx, a, spec.ParentCode)
		if err != nil {
			return ledger.Account{}, err
		}
		a.ParentID = &parent.ID
	}
	if err := tx.CreateAccount(ctx, a); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return ledger.Account{}, errs.Invalid("code", "account "+a.Code+" already exists")
		}
		return ledger.Account{}, err
	}
	return a, nil
}

func (s *service) Get(ctx context.Context, code string) (ledger.Account, error) {
	return s.store.AccountByCode(ctx, strings.TrimSpace(code))
}

func (s *service) List(ctx context.Context, f storage.AccountFilter) ([]ledger.Account, error) {
	return s.store.Accounts(ctx, f)
}

func (s *service) Update(ctx context.Context, code string, p Patch) (ledger.Account, error) {
	var updated ledger.Account
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		a, err := tx.AccountByCode(ctx, code)
		if err != nil {
			return err
		}
		if !a.Active() {
			return errs.ErrNotFound
		}
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return errs.Invalid("name", "required")
			}
			a.Name = name
		}
		if p.Description != nil {
			a.Description = strings.TrimSpace(*p.Description)
		}
		if p.Subtype != nil {
			st := dictionary.Normalize(*p.Subtype)
			if st != "" && !dictionary.IsValid(st) {
				return errs.Invalid("subtype", "must be 2-40 characters of a-z, 0-9 or _")
			}
			a.Subtype = st
		}
		if p.ParentCode != nil {
			if *p.ParentCode == "" {
				a.ParentID = nil
			} else {
				parent, err := resolveParent(ctx, tx, a, *p.ParentCode)
				if err != nil {
					return err
				}
				if err := checkNoCycle(ctx, tx, a.ID, parent); err != nil {
					return err
				}
				a.ParentID = &parent.ID
			}
		}
		a.UpdatedAt = s.now()
		if err := tx.UpdateAccount(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	return updated, err
}

// Deactivate soft-deletes an account. Role-bound accounts and accounts with active children are kept.
func (s *service) Deactivate(ctx context.Context, code string) error {
	return s.store.InTx(ctx, func(tx storage.Tx) error {
		a, err := tx.AccountByCode(ctx, code)
		if err != nil {
			return err
		}
		if !a.Active() {
			return nil
		}
		if role, bound := s.roles.Bound(a.Code); bound {
			return errs.Invalid("code", "account is bound to role "+string(role))
		}
		all, err := tx.Accounts(ctx, storage.AccountFilter{})
		if err != nil {
			return err
		}
		for _, c := range all {
			if c.ParentID != nil && *c.ParentID == a.ID {
				return errs.Invalid("code", "account has active child "+c.Code)
			}
		}
		a.Status = ledger.StatusVoid
		a.UpdatedAt = s.now()
		return tx.UpdateAccount(ctx, a)
	})
}

// CashAndBank lists active asset accounts usable as payment accounts.
func (s *service) CashAndBank(ctx context.Context) ([]ledger.Account, error) {
	asset := ledger.AccountTypeAsset
	all, err := s.store.Accounts(ctx, storage.AccountFilter{Type: &asset})
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Account, 0)
	for _, a := range all {
		if dictionary.IsLiquid(a.Subtype) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Chart returns the active chart as a forest ordered by code.
func (s *service) Chart(ctx context.Context) ([]ChartNode, error) {
	all, err := s.store.Accounts(ctx, storage.AccountFilter{})
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]bool, len(all))
	for _, a := range all {
		byID[a.ID] = true
	}
	children := make(map[uuid.UUID][]ledger.Account)
	roots := make([]ledger.Account, 0)
	for _, a := range all {
		if a.ParentID != nil && byID[*a.ParentID] && *a.ParentID != a.ID {
			children[*a.ParentID] = append(children[*a.ParentID], a)
			continue
		}
		roots = append(roots, a)
	}
	visited := make(map[uuid.UUID]bool, len(all))
	var build func(a ledger.Account) (ChartNode, error)
	build = func(a ledger.Account) (ChartNode, error) {
		if visited[a.ID] {
			return ChartNode{}, &errs.ConfigurationError{Reason: "cycle in account hierarchy at " + a.Code}
		}
		visited[a.ID] = true
		n := ChartNode{Account: a}
		for _, c := range children[a.ID] {
			cn, err := build(c)
			if err != nil {
				return ChartNode{}, err
			}
			n.Children = append(n.Children, cn)
		}
		return n, nil
	}
	out := make([]ChartNode, 0, len(roots))
	for _, r := range roots {
		n, err := build(r)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(visited) != len(all) {
		return nil, &errs.ConfigurationError{Reason: "cycle in account hierarchy"}
	}
	return out, nil
}

// SeedDefaults creates the standard retail chart, skipping codes that already exist.
func (s *service) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	err := s.store.InTx(ctx, func(tx storage.Tx) error {
		created = 0
		for _, spec := range DefaultChart() {
			if _, err := tx.AccountByCode(ctx, spec.Code); err == nil {
				continue
			} else if !errors.Is(err, errs.ErrNotFound) {
				return err
			}
			if _, err := s.create(ctx, tx, spec); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	return created, err
}

func resolveParent(ctx context.Context, tx storage.Tx, child ledger.Account, parentCode string) (ledger.Account, error) {
	parent, err := tx.AccountByCode(ctx, strings.TrimSpace(parentCode))
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.Account{}, errs.Invalid("parent_code", "parent account "+parentCode+" not found")
	}
	if err != nil {
		return ledger.Account{}, err
	}
	if !parent.Active() {
		return ledger.Account{}, errs.Invalid("parent_code", "parent account "+parentCode+" is inactive")
	}
	if parent.Type != child.Type {
		return ledger.Account{}, errs.Invalid("parent_code", "parent type "+string(parent.Type)+" differs from "+string(child.Type))
	}
	if parent.ID == child.ID {
		return ledger.Account{}, errs.Invalid("parent_code", "account cannot be its own parent")
	}
	return parent, nil
}

// checkNoCycle walks up from parent and fails if it reaches id.
func checkNoCycle(ctx context.Context, tx storage.Tx, id uuid.UUID, parent ledger.Account) error {
	all, err := tx.Accounts(ctx, storage.AccountFilter{IncludeInactive: true})
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]ledger.Account, len(all))
	for _, a := range all {
		byID[a.ID] = a
	}
	cur := parent
	for steps := 0; steps <= len(all); steps++ {
		if cur.ID == id {
			return errs.Invalid("parent_code", "reparenting would create a cycle")
		}
		if cur.ParentID == nil {
			return nil
		}
		next, ok := byID[*cur.ParentID]
		if !ok {
			return nil
		}
		cur = next
	}
	return &errs.ConfigurationError{Reason: "existing cycle above account " + parent.Code}
}

// nextCode returns the highest code of type t plus 10, or "<prefix>000" for an empty type.
func nextCode(ctx context.Context, tx storage.Tx, t ledger.AccountType) (string, error) {
	all, err := tx.Accounts(ctx, storage.AccountFilter{Type: &t, IncludeInactive: true})
	if err != nil {
		return "", err
	}
	highest := -1
	for _, a := range all {
		n, err := strconv.Atoi(a.Code)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	if highest < 0 {
		return string(t.CodePrefix()) + "000", nil
	}
	return strconv.Itoa(highest + 10), nil
}
