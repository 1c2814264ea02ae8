package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/recall-api/internal/domain"
	"github.com/phrazzld/recall-api/internal/store"
)

// MemoryDB is an in-memory stand-in for the PostgreSQL stores. The five
// store views share one set of tables, enforce the same constraints the
// schema does and return the same sentinel errors. Transactions are not
// modelled: WithTx returns the receiver.
//
// Any operation can be made to fail with FailOn, e.g.
// db.FailOn("items.UpdateScheduling", errors.New("boom")).
type MemoryDB struct {
	mu          sync.Mutex
	pools       map[uuid.UUID]*domain.Pool
	items       map[uuid.UUID]*domain.Item
	submissions map[uuid.UUID]*domain.Submission
	sittings    map[uuid.UUID]*domain.Sitting
	logs        map[uuid.UUID]*domain.ReviewLog
	failures    map[string]error
	calls       map[string]int
}

// NewMemoryDB creates an empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		pools:       make(map[uuid.UUID]*domain.Pool),
		items:       make(map[uuid.UUID]*domain.Item),
		submissions: make(map[uuid.UUID]*domain.Submission),
		sittings:    make(map[uuid.UUID]*domain.Sitting),
		logs:        make(map[uuid.UUID]*domain.ReviewLog),
		failures:    make(map[string]error),
		calls:       make(map[string]int),
	}
}

// FailOn makes op return err until cleared with a nil err.
func (db *MemoryDB) FailOn(op string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failures, op)
		return
	}
	db.failures[op] = err
}

// Calls returns how many times op was invoked.
func (db *MemoryDB) Calls(op string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.calls[op]
}

// enter records a call and returns the injected failure, if any.
// The caller must hold db.mu.
func (db *MemoryDB) enter(op string) error {
	db.calls[op]++
	return db.failures[op]
}

// Pools returns the PoolStore view.
func (db *MemoryDB) Pools() store.PoolStore { return &memoryPoolStore{db: db} }

// Items returns the ItemStore view.
func (db *MemoryDB) Items() store.ItemStore { return &memoryItemStore{db: db} }

// Submissions returns the SubmissionStore view.
func (db *MemoryDB) Submissions() store.SubmissionStore { return &memorySubmissionStore{db: db} }

// Sittings returns the SittingStore view.
func (db *MemoryDB) Sittings() store.SittingStore { return &memorySittingStore{db: db} }

// ReviewLogs returns the ReviewLogStore view.
func (db *MemoryDB) ReviewLogs() store.ReviewLogStore { return &memoryReviewLogStore{db: db} }

// PutItem stores a copy of item directly, bypassing validation.
func (db *MemoryDB) PutItem(item *domain.Item) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.items[item.ID] = copyItem(item)
}

// Item returns a copy of the stored item, or nil.
func (db *MemoryDB) Item(id uuid.UUID) *domain.Item {
	db.mu.Lock()
	defer db.mu.Unlock()
	if it, ok := db.items[id]; ok {
		return copyItem(it)
	}
	return nil
}

// PutSubmission stores a copy of sub directly, bypassing the active-answer check.
func (db *MemoryDB) PutSubmission(sub *domain.Submission) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.submissions[sub.ID] = copySubmission(sub)
}

// Submission returns a copy of the stored submission, or nil.
func (db *MemoryDB) Submission(id uuid.UUID) *domain.Submission {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s, ok := db.submissions[id]; ok {
		return copySubmission(s)
	}
	return nil
}

// Sitting returns a copy of the stored sitting, or nil.
func (db *MemoryDB) Sitting(id uuid.UUID) *domain.Sitting {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s, ok := db.sittings[id]; ok {
		return copySitting(s)
	}
	return nil
}

// ReviewLogCount returns the number of stored review logs.
func (db *MemoryDB) ReviewLogCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.logs)
}

// DeleteItem removes an item, as a concurrent pool deletion would.
func (db *MemoryDB) DeleteItem(id uuid.UUID) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.items, id)
}

func copyItem(it *domain.Item) *domain.Item {
	c := *it
	return &c
}

func copySubmission(s *domain.Submission) *domain.Submission {
	c := *s
	return &c
}

func copySitting(s *domain.Sitting) *domain.Sitting {
	c := *s
	c.Items = append([]domain.SittingItem(nil), s.Items...)
	return &c
}

func copyPool(p *domain.Pool, withConcepts bool) *domain.Pool {
	c := *p
	c.Concepts = nil
	if withConcepts {
		c.Concepts = append([]domain.Concept(nil), p.Concepts...)
	}
	return &c
}

// memoryPoolStore implements store.PoolStore.
type memoryPoolStore struct{ db *MemoryDB }

func (s *memoryPoolStore) Create(_ context.Context, pool *domain.Pool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("pools.Create"); err != nil {
		return err
	}
	if err := pool.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if _, ok := s.db.pools[pool.ID]; ok {
		return store.ErrDuplicate
	}
	s.db.pools[pool.ID] = copyPool(pool, true)
	return nil
}

func (s *memoryPoolStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Pool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("pools.GetByID"); err != nil {
		return nil, err
	}
	p, ok := s.db.pools[id]
	if !ok {
		return nil, store.ErrPoolNotFound
	}
	return copyPool(p, true), nil
}

func (s *memoryPoolStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	return s.list("pools.ListByOwner", ownerID, false)
}

func (s *memoryPoolStore) ListSpacedRepetition(_ context.Context, ownerID uuid.UUID) ([]*domain.Pool, error) {
	return s.list("pools.ListSpacedRepetition", ownerID, true)
}

func (s *memoryPoolStore) list(op string, ownerID uuid.UUID, spacedOnly bool) ([]*domain.Pool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter(op); err != nil {
		return nil, err
	}
	out := []*domain.Pool{}
	for _, p := range s.db.pools {
		if p.OwnerID != ownerID || (spacedOnly && !p.SpacedRepetition) {
			continue
		}
		out = append(out, copyPool(p, false))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *memoryPoolStore) AddConcepts(_ context.Context, poolID uuid.UUID, concepts []domain.Concept) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("pools.AddConcepts"); err != nil {
		return err
	}
	p, ok := s.db.pools[poolID]
	if !ok {
		return store.ErrPoolNotFound
	}
	for _, c := range concepts {
		if c.PoolID != poolID {
			return fmt.Errorf("%w: concept %s belongs to another pool", store.ErrInvalidEntity, c.ID)
		}
	}
	p.Concepts = append(p.Concepts, concepts...)
	return nil
}

func (s *memoryPoolStore) UpdateStatus(_ context.Context, id uuid.UUID, status domain.PoolStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("pools.UpdateStatus"); err != nil {
		return err
	}
	p, ok := s.db.pools[id]
	if !ok {
		return store.ErrPoolNotFound
	}
	p.Status = status
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memoryPoolStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("pools.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.pools[id]; !ok {
		return store.ErrPoolNotFound
	}
	delete(s.db.pools, id)

	// ON DELETE CASCADE
	for itemID, it := range s.db.items {
		if it.PoolID != id {
			continue
		}
		delete(s.db.items, itemID)
		for subID, sub := range s.db.submissions {
			if sub.ItemID == itemID {
				delete(s.db.submissions, subID)
				delete(s.db.logs, subID)
			}
		}
	}
	for sitID, sit := range s.db.sittings {
		if sit.PoolID != nil && *sit.PoolID == id {
			delete(s.db.sittings, sitID)
		}
	}
	return nil
}

func (s *memoryPoolStore) WithTx(*sql.Tx) store.PoolStore { return s }

// memoryItemStore implements store.ItemStore.
type memoryItemStore struct{ db *MemoryDB }

func (s *memoryItemStore) CreateMultiple(_ context.Context, items []*domain.Item) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.CreateMultiple"); err != nil {
		return err
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		if _, ok := s.db.pools[it.PoolID]; !ok {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, store.ErrPoolNotFound)
		}
	}
	for _, it := range items {
		s.db.items[it.ID] = copyItem(it)
	}
	return nil
}

func (s *memoryItemStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.get("items.GetByID", id)
}

func (s *memoryItemStore) GetForUpdate(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.get("items.GetForUpdate", id)
}

func (s *memoryItemStore) get(op string, id uuid.UUID) (*domain.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter(op); err != nil {
		return nil, err
	}
	it, ok := s.db.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return copyItem(it), nil
}

func (s *memoryItemStore) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.GetByIDs"); err != nil {
		return nil, err
	}
	out := []*domain.Item{}
	for _, id := range ids {
		if it, ok := s.db.items[id]; ok {
			out = append(out, copyItem(it))
		}
	}
	return out, nil
}

func (s *memoryItemStore) ListByPool(_ context.Context, poolID uuid.UUID) ([]*domain.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.ListByPool"); err != nil {
		return nil, err
	}
	out := s.filter(func(it *domain.Item) bool { return it.PoolID == poolID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *memoryItemStore) ListDue(_ context.Context, poolID uuid.UUID, now time.Time, limit int) ([]*domain.Item, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.ListDue"); err != nil {
		return nil, err
	}
	out := s.filter(func(it *domain.Item) bool { return it.PoolID == poolID && !it.DueAt.After(now) })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.DueAt.Equal(b.DueAt) {
			return a.DueAt.Before(b.DueAt)
		}
		if a.Box != b.Box {
			return a.Box < b.Box
		}
		return a.ID.String() < b.ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryItemStore) ListConceptsWithItems(_ context.Context, poolID uuid.UUID) ([]string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.ListConceptsWithItems"); err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	out := []string{}
	for _, it := range s.db.items {
		if it.PoolID != poolID {
			continue
		}
		if _, ok := seen[it.Concept]; ok {
			continue
		}
		seen[it.Concept] = struct{}{}
		out = append(out, it.Concept)
	}
	sort.Strings(out)
	return out, nil
}

func (s *memoryItemStore) CountByBox(_ context.Context, poolID uuid.UUID) (map[int]int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.CountByBox"); err != nil {
		return nil, err
	}
	counts := make(map[int]int, domain.MaxBox)
	for box := 1; box <= domain.MaxBox; box++ {
		counts[box] = 0
	}
	for _, it := range s.db.items {
		if it.PoolID == poolID {
			counts[it.Box]++
		}
	}
	return counts, nil
}

func (s *memoryItemStore) CountDue(_ context.Context, poolID uuid.UUID, now time.Time) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.CountDue"); err != nil {
		return 0, err
	}
	return len(s.filter(func(it *domain.Item) bool { return it.PoolID == poolID && !it.DueAt.After(now) })), nil
}

func (s *memoryItemStore) UpdateScheduling(_ context.Context, id uuid.UUID, state domain.SchedulingState) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("items.UpdateScheduling"); err != nil {
		return err
	}
	if state.Box < 1 || state.Box > domain.MaxBox {
		return domain.ErrInvalidBox
	}
	it, ok := s.db.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	it.SchedulingState = state
	it.UpdatedAt = time.Now().UTC()
	return nil
}

// filter returns copies of the items matching keep. The caller holds db.mu.
func (s *memoryItemStore) filter(keep func(*domain.Item) bool) []*domain.Item {
	out := []*domain.Item{}
	for _, it := range s.db.items {
		if keep(it) {
			out = append(out, copyItem(it))
		}
	}
	return out
}

func (s *memoryItemStore) WithTx(*sql.Tx) store.ItemStore { return s }

// memorySubmissionStore implements store.SubmissionStore.
type memorySubmissionStore struct{ db *MemoryDB }

func (s *memorySubmissionStore) Create(_ context.Context, sub *domain.Submission) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("submissions.Create"); err != nil {
		return err
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if _, ok := s.db.items[sub.ItemID]; !ok {
		return store.ErrInvalidEntity
	}
	if _, ok := s.db.sittings[sub.SittingID]; !ok {
		return store.ErrInvalidEntity
	}
	if sub.Status != domain.SubmissionStatusFailed && s.activeLocked(sub.ItemID, sub.SittingID) != nil {
		return store.ErrSubmissionExists
	}
	s.db.submissions[sub.ID] = copySubmission(sub)
	return nil
}

func (s *memorySubmissionStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Submission, error) {
	return s.get("submissions.GetByID", id)
}

func (s *memorySubmissionStore) GetForUpdate(_ context.Context, id uuid.UUID) (*domain.Submission, error) {
	return s.get("submissions.GetForUpdate", id)
}

func (s *memorySubmissionStore) get(op string, id uuid.UUID) (*domain.Submission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter(op); err != nil {
		return nil, err
	}
	sub, ok := s.db.submissions[id]
	if !ok {
		return nil, store.ErrSubmissionNotFound
	}
	return copySubmission(sub), nil
}

func (s *memorySubmissionStore) FindActive(_ context.Context, itemID, sittingID uuid.UUID) (*domain.Submission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("submissions.FindActive"); err != nil {
		return nil, err
	}
	if sub := s.activeLocked(itemID, sittingID); sub != nil {
		return copySubmission(sub), nil
	}
	return nil, store.ErrSubmissionNotFound
}

func (s *memorySubmissionStore) activeLocked(itemID, sittingID uuid.UUID) *domain.Submission {
	for _, sub := range s.db.submissions {
		if sub.ItemID == itemID && sub.SittingID == sittingID && sub.Status != domain.SubmissionStatusFailed {
			return sub
		}
	}
	return nil
}

func (s *memorySubmissionStore) ListBySitting(_ context.Context, sittingID uuid.UUID) ([]*domain.Submission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("submissions.ListBySitting"); err != nil {
		return nil, err
	}
	out := []*domain.Submission{}
	for _, sub := range s.db.submissions {
		if sub.SittingID == sittingID {
			out = append(out, copySubmission(sub))
		}
	}
	sortSubmissions(out)
	return out, nil
}

func (s *memorySubmissionStore) ListEvaluatedWithoutLog(_ context.Context, limit int) ([]*domain.Submission, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("submissions.ListEvaluatedWithoutLog"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	out := []*domain.Submission{}
	for id, sub := range s.db.submissions {
		if sub.Status != domain.SubmissionStatusEvaluated {
			continue
		}
		if _, logged := s.db.logs[id]; logged {
			continue
		}
		out = append(out, copySubmission(sub))
	}
	sortSubmissions(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memorySubmissionStore) Update(_ context.Context, sub *domain.Submission) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("submissions.Update"); err != nil {
		return err
	}
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if _, ok := s.db.submissions[sub.ID]; !ok {
		return store.ErrSubmissionNotFound
	}
	if sub.Status != domain.SubmissionStatusFailed {
		if other := s.activeLocked(sub.ItemID, sub.SittingID); other != nil && other.ID != sub.ID {
			return store.ErrSubmissionExists
		}
	}
	s.db.submissions[sub.ID] = copySubmission(sub)
	return nil
}

func (s *memorySubmissionStore) SetFeedback(_ context.Context, id uuid.UUID, feedback string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("submissions.SetFeedback"); err != nil {
		return err
	}
	sub, ok := s.db.submissions[id]
	if !ok {
		return store.ErrSubmissionNotFound
	}
	sub.Feedback = &feedback
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *memorySubmissionStore) WithTx(*sql.Tx) store.SubmissionStore { return s }

func sortSubmissions(subs []*domain.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].CreatedAt.Before(subs[j].CreatedAt)
		}
		return subs[i].ID.String() < subs[j].ID.String()
	})
}

// memorySittingStore implements store.SittingStore.
type memorySittingStore struct{ db *MemoryDB }

func (s *memorySittingStore) Create(_ context.Context, sitting *domain.Sitting) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("sittings.Create"); err != nil {
		return err
	}
	if sitting.ID == uuid.Nil {
		return domain.ErrSittingIDEmpty
	}
	if len(sitting.Items) == 0 {
		return domain.ErrSittingEmpty
	}
	if _, ok := s.db.sittings[sitting.ID]; ok {
		return store.ErrDuplicate
	}
	s.db.sittings[sitting.ID] = copySitting(sitting)
	return nil
}

func (s *memorySittingStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Sitting, error) {
	return s.get("sittings.GetByID", id)
}

func (s *memorySittingStore) GetForUpdate(_ context.Context, id uuid.UUID) (*domain.Sitting, error) {
	return s.get("sittings.GetForUpdate", id)
}

func (s *memorySittingStore) get(op string, id uuid.UUID) (*domain.Sitting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter(op); err != nil {
		return nil, err
	}
	sit, ok := s.db.sittings[id]
	if !ok {
		return nil, store.ErrSittingNotFound
	}
	return copySitting(sit), nil
}

func (s *memorySittingStore) FindLatest(
	_ context.Context,
	ownerID uuid.UUID,
	poolID *uuid.UUID,
	openOnly bool,
) (*domain.Sitting, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("sittings.FindLatest"); err != nil {
		return nil, err
	}
	var latest *domain.Sitting
	for _, sit := range s.db.sittings {
		if sit.OwnerID != ownerID {
			continue
		}
		if (poolID == nil) != (sit.PoolID == nil) || (poolID != nil && *poolID != *sit.PoolID) {
			continue
		}
		if openOnly && sit.Status != domain.SittingStatusInProgress &&
			sit.Status != domain.SittingStatusAwaitingEvaluation {
			continue
		}
		if latest == nil || sit.CreatedAt.After(latest.CreatedAt) ||
			(sit.CreatedAt.Equal(latest.CreatedAt) && sit.ID.String() > latest.ID.String()) {
			latest = sit
		}
	}
	if latest == nil {
		return nil, store.ErrSittingNotFound
	}
	return copySitting(latest), nil
}

func (s *memorySittingStore) Update(_ context.Context, sitting *domain.Sitting) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("sittings.Update"); err != nil {
		return err
	}
	cur, ok := s.db.sittings[sitting.ID]
	if !ok {
		return store.ErrSittingNotFound
	}
	cur.Status = sitting.Status
	cur.Cursor = sitting.Cursor
	cur.AcknowledgedAt = sitting.AcknowledgedAt
	cur.UpdatedAt = sitting.UpdatedAt
	return nil
}

func (s *memorySittingStore) WithTx(*sql.Tx) store.SittingStore { return s }

// memoryReviewLogStore implements store.ReviewLogStore.
type memoryReviewLogStore struct{ db *MemoryDB }

func (s *memoryReviewLogStore) Create(_ context.Context, log *domain.ReviewLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("review_logs.Create"); err != nil {
		return err
	}
	if _, ok := s.db.logs[log.SubmissionID]; ok {
		return store.ErrReviewLogExists
	}
	c := *log
	s.db.logs[log.SubmissionID] = &c
	return nil
}

func (s *memoryReviewLogStore) Exists(_ context.Context, submissionID uuid.UUID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("review_logs.Exists"); err != nil {
		return false, err
	}
	_, ok := s.db.logs[submissionID]
	return ok, nil
}

func (s *memoryReviewLogStore) GetBySubmissions(
	_ context.Context,
	submissionIDs []uuid.UUID,
) (map[uuid.UUID]*domain.ReviewLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.enter("review_logs.GetBySubmissions"); err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*domain.ReviewLog, len(submissionIDs))
	for _, id := range submissionIDs {
		if l, ok := s.db.logs[id]; ok {
			c := *l
			out[id] = &c
		}
	}
	return out, nil
}

func (s *memoryReviewLogStore) WithTx(*sql.Tx) store.ReviewLogStore { return s }

var (
	_ store.PoolStore       = (*memoryPoolStore)(nil)
	_ store.ItemStore       = (*memoryItemStore)(nil)
	_ store.SubmissionStore = (*memorySubmissionStore)(nil)
	_ store.SittingStore    = (*memorySittingStore)(nil)
	_ store.ReviewLogStore  = (*memoryReviewLogStore)(nil)
)
