// Package memory provides an in-memory Store used for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/shopledger/internal/errs"
	"github.com/tinoosan/shopledger/internal/ledger"
	"github.com/tinoosan/shopledger/internal/storage"
)

// entryKey orders entries asc by (Date, seq); seq is the insertion counter.
type entryKey struct {
	Date time.Time
	Seq  int64
}

type seqKey struct {
	Prefix string
	Period int
}

// state is everything a transaction may touch; it is cloned for rollback.
type state struct {
	accounts  map[uuid.UUID]ledger.Account
	codes     map[string]uuid.UUID
	entries   map[int64]ledger.LedgerEntry
	entryKeys []entryKey
	entryByID map[uuid.UUID]int64
	nextSeq   int64
	sequences map[seqKey]int64
	documents map[string]ledger.Document
}

func newState() *state {
	return &state{
		accounts:  make(map[uuid.UUID]ledger.Account),
		codes:     make(map[string]uuid.UUID),
		entries:   make(map[int64]ledger.LedgerEntry),
		entryByID: make(map[uuid.UUID]int64),
		sequences: make(map[seqKey]int64),
		documents: make(map[string]ledger.Document),
	}
}

func (st *state) clone() *state {
	c := newState()
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.codes {
		c.codes[k] = v
	}
	for k, v := range st.entries {
		c.entries[k] = v
	}
	c.entryKeys = append([]entryKey(nil), st.entryKeys...)
	for k, v := range st.entryByID {
		c.entryByID[k] = v
	}
	c.nextSeq = st.nextSeq
	for k, v := range st.sequences {
		c.sequences[k] = v
	}
	for k, v := range st.documents {
		c.documents[k] = copyDocument(v)
	}
	return c
}

// Store is an in-memory implementation of storage.Store guarded by an RWMutex.
// Transactions are serialized and roll back by restoring a snapshot.
type Store struct {
	mu sync.RWMutex
	st *state
}

// New constructs an empty in-memory store.
func New() *Store { return &Store{st: newState()} }

// Reset drops all data.
func (s *Store) Reset() {
	s.mu.Lock()
	s.st = newState()
	s.mu.Unlock()
}

// InTx runs fn under the write lock and restores the prior state if fn fails.
func (s *Store) InTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.st.clone()
	if err := fn(txView{st: s.st}); err != nil {
		s.st = snap
		return err
	}
	return nil
}

// Ready always succeeds.
func (s *Store) Ready(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.InTx(ctx, fn)
}

func (s *Store) AccountByCode(_ context.Context, code string) (a ledger.Account, err error) {
	s.read(func(st *state) { a, err = st.accountByCode(code) })
	return
}

func (s *Store) AccountByID(_ context.Context, id uuid.UUID) (a ledger.Account, err error) {
	s.read(func(st *state) { a, err = st.accountByID(id) })
	return
}

func (s *Store) Accounts(_ context.Context, f storage.AccountFilter) (out []ledger.Account, err error) {
	s.read(func(st *state) { out = st.listAccounts(f) })
	return
}

func (s *Store) Entries(_ context.Context, f storage.EntryFilter) (out []ledger.LedgerEntry, err error) {
	s.read(func(st *state) { out = st.listEntries(f) })
	return
}

func (s *Store) CountEntries(_ context.Context, f storage.EntryFilter) (n int, err error) {
	f.Limit, f.Offset = 0, 0
	s.read(func(st *state) { n = len(st.listEntries(f)) })
	return
}

func (s *Store) DocumentByNumber(_ context.Context, number string) (d ledger.Document, err error) {
	s.read(func(st *state) { d, err = st.documentByNumber(number) })
	return
}

func (s *Store) Documents(_ context.Context, f storage.DocumentFilter) (out []ledger.Document, err error) {
	s.read(func(st *state) { out = st.listDocuments(f) })
	return
}

func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) error {
	return s.write(ctx, func(tx storage.Tx) error { return tx.CreateAccount(ctx, a) })
}

func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) error {
	return s.write(ctx, func(tx storage.Tx) error { return tx.UpdateAccount(ctx, a) })
}

func (s *Store) InsertEntries(ctx context.Context, entries []ledger.LedgerEntry) error {
	return s.write(ctx, func(tx storage.Tx) error { return tx.InsertEntries(ctx, entries) })
}

func (s *Store) SetEntryStatus(ctx context.Context, ids []uuid.UUID, status ledger.Status) error {
	return s.write(ctx, func(tx storage.Tx) error { return tx.SetEntryStatus(ctx, ids, status) })
}

func (s *Store) NextSequence(ctx context.Context, prefix string, period int) (n int64, err error) {
	err = s.write(ctx, func(tx storage.Tx) error {
		n, err = tx.NextSequence(ctx, prefix, period)
		return err
	})
	return
}

func (s *Store) CreateDocument(ctx context.Context, d ledger.Document) error {
	return s.write(ctx, func(tx storage.Tx) error { return tx.CreateDocument(ctx, d) })
}

func (s *Store) UpdateDocument(ctx context.Context, d ledger.Document) error {
	return s.write(ctx, func(tx storage.Tx) error { return tx.UpdateDocument(ctx, d) })
}

// txView exposes state operations to a transaction; the caller holds the write lock.
type txView struct{ st *state }

func (t txView) AccountByCode(_ context.Context, code string) (ledger.Account, error) {
	return t.st.accountByCode(code)
}

func (t txView) AccountByID(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	return t.st.accountByID(id)
}

func (t txView) Accounts(_ context.Context, f storage.AccountFilter) ([]ledger.Account, error) {
	return t.st.listAccounts(f), nil
}

func (t txView) Entries(_ context.Context, f storage.EntryFilter) ([]ledger.LedgerEntry, error) {
	return t.st.listEntries(f), nil
}

func (t txView) CountEntries(_ context.Context, f storage.EntryFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	return len(t.st.listEntries(f)), nil
}

func (t txView) DocumentByNumber(_ context.Context, number string) (ledger.Document, error) {
	return t.st.documentByNumber(number)
}

func (t txView) Documents(_ context.Context, f storage.DocumentFilter) ([]ledger.Document, error) {
	return t.st.listDocuments(f), nil
}

// DocumentForUpdate needs no row lock; the caller already holds the store's write lock.
func (t txView) DocumentForUpdate(_ context.Context, number string) (ledger.Document, error) {
	return t.st.documentByNumber(number)
}

func (t txView) TransactionForUpdate(_ context.Context, transactionNo string) ([]ledger.LedgerEntry, error) {
	return t.st.listEntries(storage.EntryFilter{TransactionNo: transactionNo}), nil
}

func (t txView) CreateAccount(_ context.Context, a ledger.Account) error {
	if _, ok := t.st.codes[a.Code]; ok {
		return errs.ErrConflict
	}
	if _, ok := t.st.accounts[a.ID]; ok {
		return errs.ErrConflict
	}
	t.st.accounts[a.ID] = a
	t.st.codes[a.Code] = a.ID
	return nil
}

func (t txView) UpdateAccount(_ context.Context, a ledger.Account) error {
	prev, ok := t.st.accounts[a.ID]
	if !ok {
		return errs.ErrNotFound
	}
	if prev.Code != a.Code {
		if _, taken := t.st.codes[a.Code]; taken {
			return errs.ErrConflict
		}
		delete(t.st.codes, prev.Code)
		t.st.codes[a.Code] = a.ID
	}
	t.st.accounts[a.ID] = a
	return nil
}

func (t txView) InsertEntries(_ context.Context, entries []ledger.LedgerEntry) error {
	for _, e := range entries {
		if _, dup := t.st.entryByID[e.ID]; dup {
			return errs.ErrConflict
		}
	}
	for _, e := range entries {
		t.st.nextSeq++
		seq := t.st.nextSeq
		t.st.entries[seq] = e
		t.st.entryByID[e.ID] = seq
		t.st.insertEntryIndex(entryKey{Date: e.Date, Seq: seq})
	}
	return nil
}

func (t txView) SetEntryStatus(_ context.Context, ids []uuid.UUID, status ledger.Status) error {
	for _, id := range ids {
		seq, ok := t.st.entryByID[id]
		if !ok {
			return errs.ErrNotFound
		}
		e := t.st.entries[seq]
		e.Status = status
		t.st.entries[seq] = e
	}
	return nil
}

func (t txView) NextSequence(_ context.Context, prefix string, period int) (int64, error) {
	k := seqKey{Prefix: prefix, Period: period}
	t.st.sequences[k]++
	return t.st.sequences[k], nil
}

func (t txView) CreateDocument(_ context.Context, d ledger.Document) error {
	if _, ok := t.st.documents[d.Number]; ok {
		return errs.ErrConflict
	}
	t.st.documents[d.Number] = copyDocument(d)
	return nil
}

func (t txView) UpdateDocument(_ context.Context, d ledger.Document) error {
	if _, ok := t.st.documents[d.Number]; !ok {
		return errs.ErrNotFound
	}
	t.st.documents[d.Number] = copyDocument(d)
	return nil
}

func (st *state) accountByCode(code string) (ledger.Account, error) {
	id, ok := st.codes[code]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return st.accounts[id], nil
}

func (st *state) accountByID(id uuid.UUID) (ledger.Account, error) {
	a, ok := st.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (st *state) listAccounts(f storage.AccountFilter) []ledger.Account {
	out := make([]ledger.Account, 0, len(st.accounts))
	for _, a := range st.accounts {
		if !f.IncludeInactive && !a.Active() {
			continue
		}
		if f.Type != nil && a.Type != *f.Type {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (st *state) listEntries(f storage.EntryFilter) []ledger.LedgerEntry {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]ledger.LedgerEntry, 0)
	skipped := 0
	for _, k := range st.rangeByTime(f.Start, f.End) {
		e := st.entries[k.Seq]
		if f.Status != 0 && e.Status != f.Status {
			continue
		}
		if f.AccountCode != "" && e.AccountCode != f.AccountCode {
			continue
		}
		if f.TransactionNo != "" && e.TransactionNo != f.TransactionNo {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Description), search) &&
			!strings.Contains(strings.ToLower(e.TransactionNo), search) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, e)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

func (st *state) documentByNumber(number string) (ledger.Document, error) {
	d, ok := st.documents[number]
	if !ok {
		return ledger.Document{}, errs.ErrNotFound
	}
	return copyDocument(d), nil
}

func (st *state) listDocuments(f storage.DocumentFilter) []ledger.Document {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]ledger.Document, 0)
	for _, d := range st.documents {
		if f.Kind != "" && d.Kind != f.Kind {
			continue
		}
		if f.OpenOnly && !d.Open() {
			continue
		}
		if f.ExcludeVoid && d.Status == ledger.DocumentVoid {
			continue
		}
		if (f.Start != nil && d.Date.Before(*f.Start)) || (f.End != nil && d.Date.After(*f.End)) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(d.Number), search) &&
			!strings.Contains(strings.ToLower(d.Counterparty), search) {
			continue
		}
		out = append(out, copyDocument(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// insertEntryIndex inserts k keeping entryKeys sorted asc by (Date, Seq).
func (st *state) insertEntryIndex(k entryKey) {
	keys := st.entryKeys
	i := sort.Search(len(keys), func(i int) bool {
		if keys[i].Date.After(k.Date) {
			return true
		}
		if keys[i].Date.Equal(k.Date) {
			return keys[i].Seq > k.Seq
		}
		return false
	})
	if i == len(keys) {
		st.entryKeys = append(keys, k)
		return
	}
	keys = append(keys, entryKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	st.entryKeys = keys
}

// rangeByTime returns the index keys within [from,to] inclusive.
func (st *state) rangeByTime(from, to *time.Time) []entryKey {
	keys := st.entryKeys
	start := 0
	if from != nil {
		f := *from
		start = sort.Search(len(keys), func(i int) bool { return !keys[i].Date.Before(f) })
	}
	end := len(keys)
	if to != nil {
		t := *to
		end = sort.Search(len(keys), func(i int) bool { return keys[i].Date.After(t) })
	}
	if start >= end {
		return nil
	}
	return keys[start:end]
}

func copyDocument(d ledger.Document) ledger.Document {
	d.PaymentNumbers = append([]string(nil), d.PaymentNumbers...)
	return d
}
