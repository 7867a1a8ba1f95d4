package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Jaaz7/kgag-scheduler/internal/model"
	"github.com/Jaaz7/kgag-scheduler/internal/repository"
	apperrors "github.com/Jaaz7/kgag-scheduler/pkg/errors"
	"github.com/Jaaz7/kgag-scheduler/pkg/mq"
	pkgredis "github.com/Jaaz7/kgag-scheduler/pkg/redis"
)

// ── Mock ShopRepository ──

type mockShopRepo struct {
	shops map[string]*model.Shop
}

func newMockShopRepo() *mockShopRepo {
	return &mockShopRepo{shops: make(map[string]*model.Shop)}
}

func (m *mockShopRepo) Create(_ context.Context, shop *model.Shop) error {
	for _, s := range m.shops {
		if s.Name == shop.Name {
			return apperrors.ErrAlreadyExists
		}
	}
	if shop.ShopID == "" {
		shop.ShopID = "shop-" + shop.Name
	}
	shop.Version = 1
	shop.CreatedAt = time.Now()
	shop.UpdatedAt = shop.CreatedAt
	cp := *shop
	m.shops[shop.ShopID] = &cp
	return nil
}

func (m *mockShopRepo) GetByID(_ context.Context, id string) (*model.Shop, error) {
	if s, ok := m.shops[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShopRepo) GetByName(_ context.Context, name string) (*model.Shop, error) {
	for _, s := range m.shops {
		if s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShopRepo) List(_ context.Context) ([]model.Shop, error) {
	var result []model.Shop
	for _, s := range m.shops {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *mockShopRepo) Update(_ context.Context, shop *model.Shop) error {
	stored, ok := m.shops[shop.ShopID]
	if !ok || stored.Version != shop.Version {
		return apperrors.ErrOptimisticLock
	}
	shop.Version++
	cp := *shop
	m.shops[shop.ShopID] = &cp
	return nil
}

func (m *mockShopRepo) Delete(_ context.Context, id string, _ *string) error {
	delete(m.shops, id)
	return nil
}

// ── Mock WorkerRepository ──

type mockWorkerRepo struct {
	workers map[string]*model.Worker
}

func newMockWorkerRepo() *mockWorkerRepo {
	return &mockWorkerRepo{workers: make(map[string]*model.Worker)}
}

func (m *mockWorkerRepo) Create(_ context.Context, worker *model.Worker) error {
	if worker.WorkerID == "" {
		worker.WorkerID = "w-" + worker.Name
	}
	worker.Version = 1
	cp := *worker
	m.workers[worker.WorkerID] = &cp
	return nil
}

func (m *mockWorkerRepo) GetByID(_ context.Context, id string) (*model.Worker, error) {
	if w, ok := m.workers[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkerRepo) ListByShop(_ context.Context, shopID string, activeOnly bool) ([]model.Worker, error) {
	var result []model.Worker
	for _, w := range m.workers {
		if w.ShopID != shopID || (activeOnly && !w.IsActive) {
			continue
		}
		result = append(result, *w)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].WorkerID < result[j].WorkerID
	})
	return result, nil
}

func (m *mockWorkerRepo) Update(_ context.Context, worker *model.Worker) error {
	stored, ok := m.workers[worker.WorkerID]
	if !ok || stored.Version != worker.Version {
		return apperrors.ErrOptimisticLock
	}
	worker.Version++
	cp := *worker
	m.workers[worker.WorkerID] = &cp
	return nil
}

func (m *mockWorkerRepo) Delete(_ context.Context, id string, _ *string) error {
	delete(m.workers, id)
	return nil
}

func (m *mockWorkerRepo) NextSortOrder(_ context.Context, shopID string) (int, error) {
	next := 0
	for _, w := range m.workers {
		if w.ShopID == shopID && w.SortOrder >= next {
			next = w.SortOrder + 1
		}
	}
	return next, nil
}

// ── Mock ShiftSlotRepository ──

type mockShiftSlotRepo struct {
	slots map[string]*model.ShiftSlot
}

func newMockShiftSlotRepo() *mockShiftSlotRepo {
	return &mockShiftSlotRepo{slots: make(map[string]*model.ShiftSlot)}
}

func (m *mockShiftSlotRepo) Create(_ context.Context, slot *model.ShiftSlot) error {
	if slot.ShiftSlotID == "" {
		slot.ShiftSlotID = fmt.Sprintf("slot-%d", len(m.slots)+1)
	}
	slot.Version = 1
	cp := *slot
	m.slots[slot.ShiftSlotID] = &cp
	return nil
}

func (m *mockShiftSlotRepo) GetByID(_ context.Context, id string) (*model.ShiftSlot, error) {
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockShiftSlotRepo) ListForShop(_ context.Context, shopID string) ([]model.ShiftSlot, error) {
	pick := func(match func(*model.ShiftSlot) bool) []model.ShiftSlot {
		var result []model.ShiftSlot
		for _, s := range m.slots {
			if s.IsActive && match(s) {
				result = append(result, *s)
			}
		}
		sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
		return result
	}
	own := pick(func(s *model.ShiftSlot) bool { return s.ShopID != nil && *s.ShopID == shopID })
	if len(own) > 0 {
		return own, nil
	}
	return pick(func(s *model.ShiftSlot) bool { return s.ShopID == nil }), nil
}

func (m *mockShiftSlotRepo) ListAll(_ context.Context) ([]model.ShiftSlot, error) {
	var result []model.ShiftSlot
	for _, s := range m.slots {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (m *mockShiftSlotRepo) Update(_ context.Context, slot *model.ShiftSlot) error {
	stored, ok := m.slots[slot.ShiftSlotID]
	if !ok || stored.Version != slot.Version {
		return apperrors.ErrOptimisticLock
	}
	slot.Version++
	cp := *slot
	m.slots[slot.ShiftSlotID] = &cp
	return nil
}

func (m *mockShiftSlotRepo) Delete(_ context.Context, id string, _ *string) error {
	delete(m.slots, id)
	return nil
}

// ── Mock ClosureRepository ──

type mockClosureRepo struct {
	closures map[string]*model.ShopClosure
}

func newMockClosureRepo() *mockClosureRepo {
	return &mockClosureRepo{closures: make(map[string]*model.ShopClosure)}
}

func (m *mockClosureRepo) Create(_ context.Context, c *model.ShopClosure) error {
	if c.ClosureID == "" {
		c.ClosureID = fmt.Sprintf("closure-%d", len(m.closures)+1)
	}
	cp := *c
	m.closures[c.ClosureID] = &cp
	return nil
}

func (m *mockClosureRepo) GetByID(_ context.Context, id string) (*model.ShopClosure, error) {
	if c, ok := m.closures[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClosureRepo) ListByShop(_ context.Context, shopID string) ([]model.ShopClosure, error) {
	var result []model.ShopClosure
	for _, c := range m.closures {
		if c.ShopID == shopID {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClosureID < result[j].ClosureID })
	return result, nil
}

func (m *mockClosureRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.closures[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.closures, id)
	return nil
}

// ── Mock ScheduleRepository ──

type mockScheduleRepo struct {
	schedules map[string]*model.Schedule
	shops     *mockShopRepo

	// hideExisting 让 ExistsForPeriod 返回 false，模拟并发生成时预检查被绕过
	hideExisting bool
	createErr    error
}

func newMockScheduleRepo(shops *mockShopRepo) *mockScheduleRepo {
	return &mockScheduleRepo{schedules: make(map[string]*model.Schedule), shops: shops}
}

func (m *mockScheduleRepo) Create(_ context.Context, s *model.Schedule) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.schedules {
		if existing.ShopID == s.ShopID && existing.Month == s.Month && existing.Year == s.Year {
			return apperrors.ErrAlreadyExists
		}
	}
	if s.ScheduleID == "" {
		s.ScheduleID = fmt.Sprintf("sch-%d", len(m.schedules)+1)
	}
	s.CreatedAt = time.Now()
	cp := *s
	cp.Assignments = nil
	m.schedules[s.ScheduleID] = &cp
	return nil
}

func (m *mockScheduleRepo) withShop(s *model.Schedule) *model.Schedule {
	cp := *s
	if shop, ok := m.shops.shops[s.ShopID]; ok {
		sc := *shop
		cp.Shop = &sc
	}
	return &cp
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.Schedule, error) {
	if s, ok := m.schedules[id]; ok {
		return m.withShop(s), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) GetByPeriod(_ context.Context, shopID string, month, year int) (*model.Schedule, error) {
	for _, s := range m.schedules {
		if s.ShopID == shopID && s.Month == month && s.Year == year {
			return m.withShop(s), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) ExistsForPeriod(ctx context.Context, shopID string, month, year int) (bool, error) {
	if m.hideExisting {
		return false, nil
	}
	_, err := m.GetByPeriod(ctx, shopID, month, year)
	return err == nil, nil
}

func (m *mockScheduleRepo) ListByShop(_ context.Context, shopID string) ([]model.Schedule, error) {
	var result []model.Schedule
	for _, s := range m.schedules {
		if s.ShopID == shopID {
			result = append(result, *s)
		}
	}
	return result, nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct {
	rows      map[string][]model.ScheduleAssignment
	schedules *mockScheduleRepo
	workers   *mockWorkerRepo

	commitErr error
}

func newMockAssignmentRepo(schedules *mockScheduleRepo, workers *mockWorkerRepo) *mockAssignmentRepo {
	return &mockAssignmentRepo{
		rows:      make(map[string][]model.ScheduleAssignment),
		schedules: schedules,
		workers:   workers,
	}
}

func (m *mockAssignmentRepo) CommitAssignments(_ context.Context, scheduleID string, rows []model.ScheduleAssignment) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	stored := make([]model.ScheduleAssignment, len(rows))
	for i := range rows {
		rows[i].ScheduleID = scheduleID
		if rows[i].AssignmentID == "" {
			rows[i].AssignmentID = fmt.Sprintf("%s-a%d", scheduleID, i)
		}
		stored[i] = rows[i]
		stored[i].Worker = nil
	}
	m.rows[scheduleID] = stored
	return nil
}

func (m *mockAssignmentRepo) attach(rows []model.ScheduleAssignment) []model.ScheduleAssignment {
	out := make([]model.ScheduleAssignment, len(rows))
	copy(out, rows)
	for i := range out {
		if out[i].WorkerID == nil {
			continue
		}
		if w, ok := m.workers.workers[*out[i].WorkerID]; ok {
			cp := *w
			out[i].Worker = &cp
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (m *mockAssignmentRepo) ListBySchedule(_ context.Context, scheduleID string) ([]model.ScheduleAssignment, error) {
	return m.attach(m.rows[scheduleID]), nil
}

func (m *mockAssignmentRepo) ListByScheduleAndWorker(_ context.Context, scheduleID, workerID string) ([]model.ScheduleAssignment, error) {
	var result []model.ScheduleAssignment
	for _, r := range m.rows[scheduleID] {
		if r.WorkerID != nil && *r.WorkerID == workerID {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockAssignmentRepo) ListFilledByShopBetween(_ context.Context, shopID string, from, to time.Time) ([]model.ScheduleAssignment, error) {
	var result []model.ScheduleAssignment
	for scheduleID, rows := range m.rows {
		s, ok := m.schedules.schedules[scheduleID]
		if !ok || s.ShopID != shopID {
			continue
		}
		for _, r := range rows {
			if r.WorkerID == nil || r.WorkDate.Before(from) || r.WorkDate.After(to) {
				continue
			}
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].WorkDate.Equal(result[j].WorkDate) {
			return result[i].WorkDate.Before(result[j].WorkDate)
		}
		return result[i].Seq < result[j].Seq
	})
	return result, nil
}

// ── Mock ScheduleCache ──

type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (c *mockCache) GetJSON(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	data, ok := c.entries[key]
	if !ok {
		return pkgredis.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(data, dest)
}

func (c *mockCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

func (c *mockCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

// ── Mock EventPublisher ──

type mockPublisher struct {
	mu     sync.Mutex
	events []mq.ScheduleGenerated
	err    error
}

func (p *mockPublisher) PublishScheduleGenerated(_ context.Context, ev mq.ScheduleGenerated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

// ── 聚合 ──

// testRepos 聚合所有 mock repo 便于 seed 数据
type testRepos struct {
	shop       *mockShopRepo
	worker     *mockWorkerRepo
	shiftSlot  *mockShiftSlotRepo
	closure    *mockClosureRepo
	schedule   *mockScheduleRepo
	assignment *mockAssignmentRepo
}

func newTestRepos() *testRepos {
	shops := newMockShopRepo()
	workers := newMockWorkerRepo()
	schedules := newMockScheduleRepo(shops)
	return &testRepos{
		shop:       shops,
		worker:     workers,
		shiftSlot:  newMockShiftSlotRepo(),
		closure:    newMockClosureRepo(),
		schedule:   schedules,
		assignment: newMockAssignmentRepo(schedules, workers),
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		Shop:       r.shop,
		Worker:     r.worker,
		ShiftSlot:  r.shiftSlot,
		Closure:    r.closure,
		Schedule:   r.schedule,
		Assignment: r.assignment,
	}
}
