package service

import (
	"context"
	"sync"
	"time"

	"backend/internal/model"
	"backend/internal/notify"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes. They implement just enough behavior for the
// service tests; SQL-level behavior is covered by the repository tests.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeLeaveRepo struct {
	mu      sync.Mutex
	leaves  map[uuid.UUID]*model.LeaveRequest
	overlap bool

	createErr error
	onGet     func() // runs after GetByID returns its copy, before the caller acts on it
}

func newFakeLeaveRepo() *fakeLeaveRepo {
	return &fakeLeaveRepo{leaves: map[uuid.UUID]*model.LeaveRequest{}}
}

func (r *fakeLeaveRepo) Create(_ context.Context, leave *model.LeaveRequest) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if leave.ID == uuid.Nil {
		leave.ID = uuid.New()
	}
	copied := *leave
	r.leaves[leave.ID] = &copied
	return nil
}

func (r *fakeLeaveRepo) GetByID(_ context.Context, id uuid.UUID) (*model.LeaveRequest, error) {
	r.mu.Lock()
	leave, ok := r.leaves[id]
	if !ok {
		r.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	copied := *leave
	r.mu.Unlock()
	if r.onGet != nil {
		r.onGet()
	}
	return &copied, nil
}

func (r *fakeLeaveRepo) ListByEmployee(_ context.Context, employeeID uuid.UUID) ([]model.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LeaveRequest
	for _, l := range r.leaves {
		if l.EmployeeID == employeeID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (r *fakeLeaveRepo) ListPending(_ context.Context, employeeIDs []uuid.UUID) ([]model.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LeaveRequest
	for _, l := range r.leaves {
		if l.Status != model.LeaveStatusPending {
			continue
		}
		if employeeIDs != nil && !containsID(employeeIDs, l.EmployeeID) {
			continue
		}
		out = append(out, *l)
	}
	return out, nil
}

func (r *fakeLeaveRepo) List(_ context.Context, filter repository.LeaveFilter) ([]model.LeaveRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.LeaveRequest
	for _, l := range r.leaves {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.LeaveType != "" && l.LeaveType != filter.LeaveType {
			continue
		}
		if filter.EmployeeIDs != nil && !containsID(filter.EmployeeIDs, l.EmployeeID) {
			continue
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (r *fakeLeaveRepo) Update(_ context.Context, leave *model.LeaveRequest, expectedStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leaves[leave.ID]
	if !ok || stored.Status != expectedStatus {
		return repository.ErrStaleRow
	}
	copied := *leave
	r.leaves[leave.ID] = &copied
	return nil
}

func (r *fakeLeaveRepo) Delete(_ context.Context, id uuid.UUID, expectedStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.leaves[id]
	if !ok || stored.Status != expectedStatus {
		return repository.ErrStaleRow
	}
	delete(r.leaves, id)
	return nil
}

func (r *fakeLeaveRepo) DeleteByEmployee(_ context.Context, employeeID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.leaves {
		if l.EmployeeID == employeeID {
			delete(r.leaves, id)
		}
	}
	return nil
}

func (r *fakeLeaveRepo) HasOverlap(_ context.Context, _ uuid.UUID, _, _ time.Time) (bool, error) {
	return r.overlap, nil
}

func (r *fakeLeaveRepo) CountActiveOverlapByDepartment(_ context.Context, _ string, _, _ time.Time, _ uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, l := range r.leaves {
		if l.Status != model.LeaveStatusRejected {
			n++
		}
	}
	return n, nil
}

func (r *fakeLeaveRepo) CountByStatus(_ context.Context) ([]repository.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, l := range r.leaves {
		counts[l.Status]++
	}
	var out []repository.StatusCount
	for status, count := range counts {
		out = append(out, repository.StatusCount{Status: status, Count: count})
	}
	return out, nil
}

func (r *fakeLeaveRepo) CountByType(_ context.Context) ([]repository.TypeCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int64{}
	for _, l := range r.leaves {
		counts[l.LeaveType]++
	}
	var out []repository.TypeCount
	for lt, count := range counts {
		out = append(out, repository.TypeCount{LeaveType: lt, Count: count})
	}
	return out, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User

	departmentSize int64
	accrualPeriods map[string]int64 // period -> rows affected on first run
	carriedYears   map[int]bool
	touched        map[uuid.UUID]time.Time
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:          map[uuid.UUID]*model.User{},
		accrualPeriods: map[string]int64{},
		carriedYears:   map[int]bool{},
		touched:        map[uuid.UUID]time.Time{},
	}
}

func (r *fakeUserRepo) add(user *model.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID] = user
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.add(user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, _, _ int) ([]model.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) DepartmentEmployeeIDs(_ context.Context, department string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := []uuid.UUID{}
	for _, u := range r.users {
		if u.Department == department {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func (r *fakeUserRepo) CountDepartmentEmployees(_ context.Context, _ string) (int64, error) {
	return r.departmentSize, nil
}

// CreditMonthlyAccrual mimics the guarded UPDATE: the first call for a period
// credits every active employee, repeats match zero rows.
func (r *fakeUserRepo) CreditMonthlyAccrual(_ context.Context, period string, amount decimal.Decimal) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, done := r.accrualPeriods[period]; done {
		return 0, nil
	}
	var n int64
	for _, u := range r.users {
		if u.Role == model.RoleEmployee && u.IsActive && u.LastAccrualPeriod != period {
			u.BalanceEL = u.BalanceEL.Add(amount)
			u.LastAccrualPeriod = period
			n++
		}
	}
	r.accrualPeriods[period] = n
	return n, nil
}

func (r *fakeUserRepo) ApplyCarryForward(_ context.Context, year int, resetSL, resetCL, creditEL decimal.Decimal) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.carriedYears[year] {
		return 0, nil
	}
	var n int64
	for _, u := range r.users {
		if u.Role == model.RoleEmployee && u.IsActive && u.LastCarryForwardYear < year {
			u.BalanceSL = resetSL
			u.BalanceCL = resetCL
			u.BalanceEL = u.BalanceEL.Add(creditEL)
			u.LastCarryForwardYear = year
			n++
		}
	}
	r.carriedYears[year] = true
	return n, nil
}

func (r *fakeUserRepo) ListBurnoutCandidates(_ context.Context, threshold time.Time) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if u.Role != model.RoleEmployee || !u.IsActive {
			continue
		}
		if u.LastLeaveDate != nil && u.LastLeaveDate.Before(threshold) {
			out = append(out, *u)
		} else if u.LastLeaveDate == nil && u.JoiningDate.Before(threshold) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) TouchLastLeaveDate(_ context.Context, employeeID uuid.UUID, date time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched[employeeID] = date
	return nil
}

type fakeHolidayRepo struct {
	holidays []model.Holiday
}

func (r *fakeHolidayRepo) Create(_ context.Context, holiday *model.Holiday) error {
	if holiday.ID == uuid.Nil {
		holiday.ID = uuid.New()
	}
	r.holidays = append(r.holidays, *holiday)
	return nil
}

func (r *fakeHolidayRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Holiday, error) {
	for i := range r.holidays {
		if r.holidays[i].ID == id {
			return &r.holidays[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeHolidayRepo) ListBetween(_ context.Context, start, end time.Time) ([]model.Holiday, error) {
	var out []model.Holiday
	for _, h := range r.holidays {
		if !h.Date.Before(start) && !h.Date.After(end) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeHolidayRepo) ListAll(_ context.Context) ([]model.Holiday, error) {
	return append([]model.Holiday{}, r.holidays...), nil
}

func (r *fakeHolidayRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i := range r.holidays {
		if r.holidays[i].ID == id {
			r.holidays = append(r.holidays[:i], r.holidays[i+1:]...)
			return nil
		}
	}
	return nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Record(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, _, _ int, _ string) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]model.AuditLog{}, r.entries...)
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) byAction(action string) []model.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeReimbursementRepo struct {
	mu     sync.Mutex
	claims map[uuid.UUID]*model.ReimbursementClaim

	onGet func() // runs after GetByID returns its copy, before the caller acts on it
}

func newFakeReimbursementRepo() *fakeReimbursementRepo {
	return &fakeReimbursementRepo{claims: map[uuid.UUID]*model.ReimbursementClaim{}}
}

func (r *fakeReimbursementRepo) Create(_ context.Context, claim *model.ReimbursementClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	copied := *claim
	r.claims[claim.ID] = &copied
	return nil
}

func (r *fakeReimbursementRepo) GetByID(_ context.Context, id uuid.UUID) (*model.ReimbursementClaim, error) {
	r.mu.Lock()
	claim, ok := r.claims[id]
	if !ok {
		r.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	copied := *claim
	r.mu.Unlock()
	if r.onGet != nil {
		r.onGet()
	}
	return &copied, nil
}

func (r *fakeReimbursementRepo) ListByEmployee(_ context.Context, employeeID uuid.UUID) ([]model.ReimbursementClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ReimbursementClaim
	for _, c := range r.claims {
		if c.EmployeeID == employeeID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *fakeReimbursementRepo) ListByStatuses(_ context.Context, statuses []string, employeeIDs []uuid.UUID) ([]model.ReimbursementClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ReimbursementClaim
	for _, c := range r.claims {
		if !containsString(statuses, c.Status) {
			continue
		}
		if employeeIDs != nil && !containsID(employeeIDs, c.EmployeeID) {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeReimbursementRepo) ListAll(_ context.Context, _, _ int) ([]model.ReimbursementClaim, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.ReimbursementClaim
	for _, c := range r.claims {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *fakeReimbursementRepo) Update(_ context.Context, claim *model.ReimbursementClaim, expectedStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.claims[claim.ID]
	if !ok || stored.Status != expectedStatus {
		return repository.ErrStaleRow
	}
	items := stored.Items
	copied := *claim
	copied.Items = items // scalar update only, items go through ReplaceItems
	r.claims[claim.ID] = &copied
	return nil
}

func (r *fakeReimbursementRepo) ReplaceItems(_ context.Context, claimID uuid.UUID, items []model.ReimbursementItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.claims[claimID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Items = append([]model.ReimbursementItem{}, items...)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Publish(event notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) published() []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]notify.Event{}, d.events...)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
