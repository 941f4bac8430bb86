package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"meetspot/internal/domain"
)

// In-memory repository fakes shared by the service tests. The capacity and
// CAS semantics mirror what the postgres repositories promise, so the
// services can be exercised against the same contracts they run on in
// production.

type fakeEventRepo struct {
	byID      map[string]*domain.Event
	audit     []*domain.EventAuditEntry
	nextID    int
	createErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{byID: make(map[string]*domain.Event), nextID: 1}
}

func (f *fakeEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	e.ID = fmt.Sprintf("ev-%d", f.nextID)
	f.nextID++
	f.byID[e.ID] = e
	return nil
}

func (f *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := f.byID[id]; ok {
		copy := *e
		return &copy, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) GetByJoinCode(ctx context.Context, joinCode string) (*domain.Event, error) {
	for _, e := range f.byID {
		if e.JoinCode == joinCode {
			copy := *e
			return &copy, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeEventRepo) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	out := []*domain.Event{}
	for _, e := range f.byID {
		if e.OrganizerID == organizerID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeEventRepo) TransitionStatus(ctx context.Context, eventID string, from, to domain.EventStatus, entry *domain.EventAuditEntry) error {
	e, ok := f.byID[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Status != from {
		return domain.ErrConflict
	}
	e.Status = to
	e.UpdatedAt = entry.CreatedAt
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeEventRepo) Finalize(ctx context.Context, eventID, optionID string, from domain.EventStatus, entry *domain.EventAuditEntry) error {
	e, ok := f.byID[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	if e.Status != from {
		return domain.ErrConflict
	}
	e.Status = domain.StatusConfirmed
	e.FinalOptionID = &optionID
	e.UpdatedAt = entry.CreatedAt
	f.audit = append(f.audit, entry)
	return nil
}

func (f *fakeEventRepo) UpdateSchedule(ctx context.Context, eventID string, scheduledAt time.Time, timezone string, entry *domain.EventAuditEntry) (*domain.Event, error) {
	e, ok := f.byID[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	e.ScheduledAt = &scheduledAt
	e.Timezone = timezone
	e.UpdatedAt = entry.CreatedAt
	f.audit = append(f.audit, entry)
	copy := *e
	return &copy, nil
}

type fakeParticipantRepo struct {
	events       *fakeEventRepo
	participants []*domain.EventParticipant
	nextID       int
	createErr    error
}

func newFakeParticipantRepo(events *fakeEventRepo) *fakeParticipantRepo {
	return &fakeParticipantRepo{events: events, nextID: 1}
}

func (f *fakeParticipantRepo) find(eventID, userID string) *domain.EventParticipant {
	for _, p := range f.participants {
		if p.EventID == eventID && p.UserID == userID {
			return p
		}
	}
	return nil
}

func (f *fakeParticipantRepo) Create(ctx context.Context, p *domain.EventParticipant) error {
	if f.createErr != nil {
		return f.createErr
	}
	if f.find(p.EventID, p.UserID) != nil {
		return domain.ErrAlreadyInvited
	}
	p.ID = fmt.Sprintf("part-%d", f.nextID)
	f.nextID++
	f.participants = append(f.participants, p)
	return nil
}

func (f *fakeParticipantRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.EventParticipant, error) {
	if p := f.find(eventID, userID); p != nil {
		copy := *p
		return &copy, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeParticipantRepo) ListByEventID(ctx context.Context, eventID string, params domain.PaginationParams) ([]*domain.EventParticipant, int, error) {
	out := []*domain.EventParticipant{}
	for _, p := range f.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	total := len(out)
	offset := params.Offset()
	if offset > total {
		offset = total
	}
	end := offset + params.PageSize
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (f *fakeParticipantRepo) ListByEventAndStatuses(ctx context.Context, eventID string, statuses []domain.ParticipantStatus) ([]*domain.EventParticipant, error) {
	want := make(map[domain.ParticipantStatus]bool)
	for _, s := range statuses {
		want[s] = true
	}
	out := []*domain.EventParticipant{}
	for _, p := range f.participants {
		if p.EventID == eventID && want[p.Status] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParticipantRepo) CountAccepted(ctx context.Context, eventID string) (int, error) {
	n := 0
	for _, p := range f.participants {
		if p.EventID == eventID && p.Status == domain.ParticipantAccepted {
			n++
		}
	}
	return n, nil
}

func (f *fakeParticipantRepo) UpdateStatus(ctx context.Context, eventID, userID string, from, to domain.ParticipantStatus, at time.Time) error {
	p := f.find(eventID, userID)
	if p == nil {
		return domain.ErrNotFound
	}
	if p.Status != from {
		return domain.ErrConflict
	}
	p.Status = to
	p.UpdatedAt = at
	return nil
}

func (f *fakeParticipantRepo) hasCapacity(eventID string) bool {
	e, ok := f.events.byID[eventID]
	if !ok || e.MaxAttendees == nil {
		return true
	}
	n, _ := f.CountAccepted(context.Background(), eventID)
	return n < *e.MaxAttendees
}

func (f *fakeParticipantRepo) AcceptIfCapacity(ctx context.Context, eventID, userID string, at time.Time) error {
	p := f.find(eventID, userID)
	if p == nil {
		return domain.ErrNotFound
	}
	if !f.hasCapacity(eventID) {
		return domain.ErrCapacityExceeded
	}
	p.Status = domain.ParticipantAccepted
	p.RespondedAt = &at
	p.UpdatedAt = at
	return nil
}

func (f *fakeParticipantRepo) InsertAcceptedIfCapacity(ctx context.Context, p *domain.EventParticipant) error {
	if f.find(p.EventID, p.UserID) != nil {
		return domain.ErrAlreadyInvited
	}
	if !f.hasCapacity(p.EventID) {
		return domain.ErrCapacityExceeded
	}
	p.ID = fmt.Sprintf("part-%d", f.nextID)
	f.nextID++
	f.participants = append(f.participants, p)
	return nil
}

type fakeWaitlistRepo struct {
	participants *fakeParticipantRepo
	entries      []*domain.WaitlistEntry
	nextID       int
}

func newFakeWaitlistRepo(participants *fakeParticipantRepo) *fakeWaitlistRepo {
	return &fakeWaitlistRepo{participants: participants, nextID: 1}
}

func (f *fakeWaitlistRepo) Add(ctx context.Context, w *domain.WaitlistEntry) error {
	maxPriority := 0
	for _, e := range f.entries {
		if e.EventID == w.EventID {
			if e.UserID == w.UserID {
				return domain.ErrAlreadyWaitlisted
			}
			if e.Priority > maxPriority {
				maxPriority = e.Priority
			}
		}
	}
	if w.Priority == 0 {
		w.Priority = maxPriority + 1
	}
	w.ID = fmt.Sprintf("wl-%d", f.nextID)
	f.nextID++
	f.entries = append(f.entries, w)
	return nil
}

func (f *fakeWaitlistRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.WaitlistEntry, error) {
	out := []*domain.WaitlistEntry{}
	for _, e := range f.entries {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

func (f *fakeWaitlistRepo) NextInLine(ctx context.Context, eventID string) (*domain.WaitlistEntry, error) {
	entries, _ := f.ListByEventID(ctx, eventID)
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}
	return entries[0], nil
}

func (f *fakeWaitlistRepo) Promote(ctx context.Context, eventID, userID string, at time.Time) (*domain.EventParticipant, error) {
	idx := -1
	for i, e := range f.entries {
		if e.EventID == eventID && e.UserID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, domain.ErrNotFound
	}
	if !f.participants.hasCapacity(eventID) {
		return nil, domain.ErrCapacityExceeded
	}
	p := domain.NewParticipant(eventID, userID, userID, at)
	p.Status = domain.ParticipantAccepted
	p.RespondedAt = &at
	if existing := f.participants.find(eventID, userID); existing != nil {
		existing.Status = domain.ParticipantAccepted
		existing.RespondedAt = &at
		existing.UpdatedAt = at
		p = existing
	} else {
		p.ID = fmt.Sprintf("part-%d", f.participants.nextID)
		f.participants.nextID++
		f.participants.participants = append(f.participants.participants, p)
	}
	f.entries = append(f.entries[:idx], f.entries[idx+1:]...)
	return p, nil
}

type fakeOptionRepo struct {
	options   []*domain.EventPlaceOption
	nextID    int
	createErr error
}

func newFakeOptionRepo() *fakeOptionRepo {
	return &fakeOptionRepo{nextID: 1}
}

func (f *fakeOptionRepo) Create(ctx context.Context, o *domain.EventPlaceOption) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.options {
		if existing.EventID == o.EventID && existing.PlaceRef == o.PlaceRef {
			return domain.ErrDuplicateOption
		}
	}
	o.ID = fmt.Sprintf("opt-%d", f.nextID)
	f.nextID++
	f.options = append(f.options, o)
	return nil
}

func (f *fakeOptionRepo) GetByEventAndID(ctx context.Context, eventID, id string) (*domain.EventPlaceOption, error) {
	for _, o := range f.options {
		if o.ID == id && o.EventID == eventID {
			return o, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeOptionRepo) ListByEventID(ctx context.Context, eventID string) ([]*domain.EventPlaceOption, error) {
	out := []*domain.EventPlaceOption{}
	for _, o := range f.options {
		if o.EventID == eventID {
			out = append(out, o)
		}
	}
	return out, nil
}

// fakeVoteRepo enforces the same eligibility gates the SQL upsert does:
// voting status, accepted voter, option in event. Gate failures surface as
// ErrNotFound with zero rows written.
type fakeVoteRepo struct {
	events       *fakeEventRepo
	participants *fakeParticipantRepo
	options      *fakeOptionRepo
	votes        []*domain.Vote
	nextID       int
}

func newFakeVoteRepo(events *fakeEventRepo, participants *fakeParticipantRepo, options *fakeOptionRepo) *fakeVoteRepo {
	return &fakeVoteRepo{events: events, participants: participants, options: options, nextID: 1}
}

func (f *fakeVoteRepo) Upsert(ctx context.Context, v *domain.Vote) (bool, error) {
	e, ok := f.events.byID[v.EventID]
	if !ok || e.Status != domain.StatusVoting {
		return false, domain.ErrNotFound
	}
	p := f.participants.find(v.EventID, v.VoterID)
	if p == nil || p.Status != domain.ParticipantAccepted {
		return false, domain.ErrNotFound
	}
	if _, err := f.options.GetByEventAndID(ctx, v.EventID, v.OptionID); err != nil {
		return false, domain.ErrNotFound
	}
	for _, existing := range f.votes {
		if existing.EventID == v.EventID && existing.VoterID == v.VoterID {
			v.ID = existing.ID
			*existing = *v
			return true, nil
		}
	}
	v.ID = fmt.Sprintf("vote-%d", f.nextID)
	f.nextID++
	f.votes = append(f.votes, v)
	return false, nil
}

func (f *fakeVoteRepo) GetByEventAndVoter(ctx context.Context, eventID, voterID string) (*domain.Vote, error) {
	for _, v := range f.votes {
		if v.EventID == eventID && v.VoterID == voterID {
			return v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeVoteRepo) TallyByEventID(ctx context.Context, eventID string) ([]*domain.OptionTally, error) {
	byOption := make(map[string]*domain.OptionTally)
	order := []string{}
	for _, v := range f.votes {
		if v.EventID != eventID {
			continue
		}
		t, ok := byOption[v.OptionID]
		if !ok {
			t = &domain.OptionTally{OptionID: v.OptionID}
			byOption[v.OptionID] = t
			order = append(order, v.OptionID)
		}
		t.Votes++
		t.Sum += v.Value
		if v.Value > 0 {
			t.Positive++
		}
	}
	out := make([]*domain.OptionTally, 0, len(order))
	for _, id := range order {
		out = append(out, byOption[id])
	}
	return out, nil
}

type fakePreferenceRepo struct {
	byUser map[string]*domain.UserPreferences
	err    error
}

func newFakePreferenceRepo() *fakePreferenceRepo {
	return &fakePreferenceRepo{byUser: make(map[string]*domain.UserPreferences)}
}

func (f *fakePreferenceRepo) ListByUserIDs(ctx context.Context, userIDs []string) ([]*domain.UserPreferences, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []*domain.UserPreferences{}
	for _, id := range userIDs {
		if p, ok := f.byUser[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	byID   map[string]*domain.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]*domain.User), nextID: 1}
}

func (f *fakeUserRepo) addUser(id, email, name string) {
	f.byID[id] = &domain.User{ID: id, Email: email, Name: name}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return domain.ErrConflict
		}
	}
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	f.nextID++
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error) {
	out := []*domain.User{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeAuditRepo records membership audit appends for assertions.
type fakeAuditRepo struct {
	entries []*domain.EventAuditEntry
	err     error
}

func (f *fakeAuditRepo) Append(ctx context.Context, entry *domain.EventAuditEntry) error {
	if f.err != nil {
		return f.err
	}
	entry.ID = fmt.Sprintf("audit-%d", len(f.entries)+1)
	f.entries = append(f.entries, entry)
	return nil
}

// fakeHasher and fakeIssuer keep auth service tests free of real bcrypt work.
type fakeHasher struct{}

func (fakeHasher) GenerateSalt() (string, error) {
	return "salt", nil
}

func (fakeHasher) Hash(salt, password string) (string, error) {
	return "hashed:" + salt + ":" + password, nil
}

func (fakeHasher) Compare(hash, salt, password string) error {
	if hash != "hashed:"+salt+":"+password {
		return fmt.Errorf("hash mismatch")
	}
	return nil
}

type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) Issue(userID, email string, roles []string, expiry time.Duration) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-" + userID, nil
}

// fakeNotifier records notification calls for assertions.
type fakeNotifier struct {
	invited     [][]string
	promoted    []string
	finalized   [][]string
	cancelled   [][]string
	rescheduled [][]string
}

func (f *fakeNotifier) EventInvited(ctx context.Context, emails []string, n domain.EventNotification) {
	f.invited = append(f.invited, emails)
}

func (f *fakeNotifier) WaitlistPromoted(ctx context.Context, email string, n domain.EventNotification) {
	f.promoted = append(f.promoted, email)
}

func (f *fakeNotifier) EventFinalized(ctx context.Context, emails []string, n domain.EventNotification) {
	f.finalized = append(f.finalized, emails)
}

func (f *fakeNotifier) EventCancelled(ctx context.Context, emails []string, n domain.EventNotification) {
	f.cancelled = append(f.cancelled, emails)
}

func (f *fakeNotifier) EventRescheduled(ctx context.Context, emails []string, n domain.EventNotification) {
	f.rescheduled = append(f.rescheduled, emails)
}

type fakeVenueSearcher struct {
	venues []*domain.Venue
	err    error
	gotQ   *domain.VenueQuery
}

func (f *fakeVenueSearcher) Search(ctx context.Context, q domain.VenueQuery) ([]*domain.Venue, error) {
	f.gotQ = &q
	if f.err != nil {
		return nil, f.err
	}
	return f.venues, nil
}

// fixture wires the fakes the way main wires the real repositories.
type fixture struct {
	events       *fakeEventRepo
	participants *fakeParticipantRepo
	waitlist     *fakeWaitlistRepo
	options      *fakeOptionRepo
	votes        *fakeVoteRepo
	prefs        *fakePreferenceRepo
	users        *fakeUserRepo
	audit        *fakeAuditRepo
	notifier     *fakeNotifier
	searcher     *fakeVenueSearcher
}

func newFixture() *fixture {
	events := newFakeEventRepo()
	participants := newFakeParticipantRepo(events)
	options := newFakeOptionRepo()
	return &fixture{
		events:       events,
		participants: participants,
		waitlist:     newFakeWaitlistRepo(participants),
		options:      options,
		votes:        newFakeVoteRepo(events, participants, options),
		prefs:        newFakePreferenceRepo(),
		users:        newFakeUserRepo(),
		audit:        &fakeAuditRepo{},
		notifier:     &fakeNotifier{},
		searcher:     &fakeVenueSearcher{},
	}
}

// seedEvent creates an event directly in the fake repo with the given status.
func (fx *fixture) seedEvent(organizerID string, status domain.EventStatus, maxAttendees *int) *domain.Event {
	e := &domain.Event{
		OrganizerID:  organizerID,
		Title:        "Team dinner",
		JoinCode:     "abc123",
		Status:       status,
		Timezone:     "UTC",
		MaxAttendees: maxAttendees,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	_ = fx.events.Create(context.Background(), e)
	return e
}

// seedParticipant inserts a participant row directly.
func (fx *fixture) seedParticipant(eventID, userID string, status domain.ParticipantStatus) *domain.EventParticipant {
	p := domain.NewParticipant(eventID, userID, "org-1", time.Now())
	p.Status = status
	p.ID = fmt.Sprintf("part-%d", fx.participants.nextID)
	fx.participants.nextID++
	fx.participants.participants = append(fx.participants.participants, p)
	return p
}

// seedOption inserts a venue option row directly.
func (fx *fixture) seedOption(eventID, name string, score float64, createdAt time.Time) *domain.EventPlaceOption {
	o := &domain.EventPlaceOption{
		EventID:   eventID,
		PlaceRef:  fmt.Sprintf("place-%d", fx.options.nextID),
		Name:      name,
		Origin:    domain.OriginRecommended,
		Score:     score,
		Pros:      []string{},
		Cons:      []string{},
		CreatedAt: createdAt,
	}
	_ = fx.options.Create(context.Background(), o)
	return o
}
