package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"student-result-system/internal/db"
	"student-result-system/internal/mail"
	"student-result-system/internal/model"
	"student-result-system/internal/report"
	"student-result-system/internal/testutil/testdb"
	"student-result-system/pkg/errors"
)

type fakeSender struct {
	fail map[string]error
	sent []mail.Message
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	if err, ok := f.fail[msg.To[0]]; ok {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var creds = mail.Credentials{Username: "teacher@school.com", Password: "app-pass"}

type fixture struct {
	repo    db.Repository
	svc     *Service
	sender  *fakeSender
	opened  []mail.Credentials
	ownerID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{
		repo:   db.NewRepository(testdb.NewSQLite(t)),
		sender: &fakeSender{fail: map[string]error{}},
	}

	renderer, err := report.NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	factory := func(c mail.Credentials) (mail.Sender, error) {
		fx.opened = append(fx.opened, c)
		return fx.sender, nil
	}
	fx.svc = NewService(fx.repo, renderer, factory)
	fx.ownerID = fx.addUser(t, "admin")
	return fx
}

func (fx *fixture) addUser(t *testing.T, username string) int64 {
	t.Helper()
	u := &model.User{Username: username, PasswordHash: "x"}
	if err := fx.repo.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u.ID
}

// load stores records for owner and returns their ids in file order.
func (fx *fixture) load(t *testing.T, owner int64, records ...model.StudentRecord) []int64 {
	t.Helper()
	ctx := context.Background()
	if _, err := fx.repo.ReplaceStudents(ctx, owner, records); err != nil {
		t.Fatal(err)
	}
	list, err := fx.repo.ListStudents(ctx, owner)
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]int64, len(list))
	for i, s := range list {
		ids[len(list)-1-i] = s.ID
	}
	return ids
}

func student(first, email string, each float64) model.StudentRecord {
	v := func(f float64) *float64 { return &f }
	return model.StudentRecord{
		FirstName: first, LastName: "Test", Email: email, Class: "Web",
		HW1: v(each), Participation: v(each), Q1: v(each), FinalKhmer: v(each), FinalEnglish: v(each),
		Total: v(each * 5), Grade: "A",
	}
}

func TestDispatchIsolatesRecipientFailures(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	ids := fx.load(t, fx.ownerID, student("Alice", "alice@x.com", 95), student("Bob", "bob@x.com", 55))
	fx.sender.fail["bob@x.com"] = fmt.Errorf("550 mailbox unavailable")

	summary, err := fx.svc.Dispatch(ctx, fx.ownerID, append(ids, 999999), creds)
	if err != nil {
		t.Fatal(err)
	}
	if summary.SuccessCount != 1 || summary.FailedCount != 1 || len(summary.Results) != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if r := summary.Results[1]; r.Name != "Bob Test" || r.Status != model.DispatchStatusFailed || !strings.Contains(r.Error, "mailbox unavailable") {
		t.Fatalf("bob result = %+v", r)
	}
	if len(fx.opened) != 1 || fx.opened[0] != creds {
		t.Fatalf("sender opened with %+v", fx.opened)
	}

	logs, err := fx.repo.ListDispatchLogs(ctx, fx.ownerID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d log entries, want 2", len(logs))
	}
	byEmail := map[string]model.DispatchLog{}
	for _, l := range logs {
		byEmail[l.StudentEmail] = l
	}
	if a := byEmail["alice@x.com"]; a.Status != model.DispatchStatusSuccess || a.ErrorMessage != nil || a.StudentName != "Alice Test" {
		t.Fatalf("alice log = %+v", a)
	}
	if b := byEmail["bob@x.com"]; b.Status != model.DispatchStatusFailed || b.ErrorMessage == nil {
		t.Fatalf("bob log = %+v", b)
	}

	stats, err := fx.repo.StudentStats(ctx, fx.ownerID)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalSent != 1 || stats.TotalFailed != 1 || stats.AvgTotal != 375 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestDispatchRequiresSelection(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.svc.Dispatch(context.Background(), fx.ownerID, nil, creds); !stderrors.Is(err, errors.ErrNoStudentsSelected) {
		t.Fatalf("expected ErrNoStudentsSelected, got %v", err)
	}
}

func TestDispatchRequiresCredentials(t *testing.T) {
	fx := newFixture(t)
	ids := fx.load(t, fx.ownerID, student("Alice", "alice@x.com", 95))

	_, err := fx.svc.Dispatch(context.Background(), fx.ownerID, ids, mail.Credentials{Username: "teacher@school.com"})
	if !stderrors.Is(err, errors.ErrMailNotConfigured) {
		t.Fatalf("expected ErrMailNotConfigured, got %v", err)
	}
	if len(fx.opened) != 0 {
		t.Fatal("transport opened without credentials")
	}
}

func TestDispatchSkipsOtherOwnersStudents(t *testing.T) {
	fx := newFixture(t)
	other := fx.addUser(t, "other")
	theirs := fx.load(t, other, student("Eve", "eve@x.com", 80))

	summary, err := fx.svc.Dispatch(context.Background(), fx.ownerID, theirs, creds)
	if err != nil {
		t.Fatal(err)
	}
	if summary.SuccessCount != 0 || summary.FailedCount != 0 || len(fx.sender.sent) != 0 {
		t.Fatalf("summary = %+v, sent %d", summary, len(fx.sender.sent))
	}
	logs, _ := fx.repo.ListDispatchLogs(context.Background(), fx.ownerID, 0)
	if len(logs) != 0 {
		t.Fatalf("unexpected log entries %+v", logs)
	}
}

func TestDispatchLogsPreparationFailure(t *testing.T) {
	fx := newFixture(t)
	ids := fx.load(t, fx.ownerID, student("NoMail", "", 70), student("Alice", "alice@x.com", 95))

	summary, err := fx.svc.Dispatch(context.Background(), fx.ownerID, ids, creds)
	if err != nil {
		t.Fatal(err)
	}
	if summary.SuccessCount != 1 || summary.FailedCount != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if !strings.HasPrefix(summary.Results[0].Error, "prepare message") {
		t.Fatalf("error = %q", summary.Results[0].Error)
	}
	logs, _ := fx.repo.ListDispatchLogs(context.Background(), fx.ownerID, 0)
	if len(logs) != 2 {
		t.Fatalf("got %d log entries, want 2", len(logs))
	}
}

// flakyRepo fails the first log insert and every lookup of brokenID.
type flakyRepo struct {
	db.Repository
	insertFailures int
	brokenID       int64
}

func (r *flakyRepo) InsertDispatchLog(ctx context.Context, entry *model.DispatchLog) error {
	if r.insertFailures > 0 {
		r.insertFailures--
		return fmt.Errorf("database is locked")
	}
	return r.Repository.InsertDispatchLog(ctx, entry)
}

func (r *flakyRepo) GetStudent(ctx context.Context, ownerID, id int64) (*model.Student, error) {
	if id == r.brokenID {
		return nil, fmt.Errorf("connection reset")
	}
	return r.Repository.GetStudent(ctx, ownerID, id)
}

func TestDispatchContinuesAfterStoreErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	ids := fx.load(t, fx.ownerID,
		student("Alice", "alice@x.com", 95),
		student("Bob", "bob@x.com", 85),
		student("Cara", "cara@x.com", 75),
	)

	repo := &flakyRepo{Repository: fx.repo, insertFailures: 1, brokenID: ids[1]}
	renderer, err := report.NewRenderer("")
	if err != nil {
		t.Fatal(err)
	}
	svc := NewService(repo, renderer, func(mail.Credentials) (mail.Sender, error) { return fx.sender, nil })

	summary, err := svc.Dispatch(ctx, fx.ownerID, ids, creds)
	if err != nil {
		t.Fatal(err)
	}
	if summary.SuccessCount != 2 || summary.FailedCount != 1 || len(summary.Results) != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if r := summary.Results[1]; r.ID != ids[1] || r.Status != model.DispatchStatusFailed || !strings.Contains(r.Error, "connection reset") {
		t.Fatalf("bob result = %+v", r)
	}
	if len(fx.sender.sent) != 2 || fx.sender.sent[1].To[0] != "cara@x.com" {
		t.Fatalf("sent %d messages", len(fx.sender.sent))
	}

	// Alice's entry was lost to the failed insert; Bob and Cara are recorded.
	logs, err := fx.repo.ListDispatchLogs(ctx, fx.ownerID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d log entries, want 2", len(logs))
	}
	statuses := map[int64]model.DispatchStatus{}
	for _, l := range logs {
		statuses[l.StudentID] = l.Status
	}
	if statuses[ids[1]] != model.DispatchStatusFailed || statuses[ids[2]] != model.DispatchStatusSuccess {
		t.Fatalf("log statuses = %v", statuses)
	}
}

func TestDispatchStopsWhenCancelled(t *testing.T) {
	fx := newFixture(t)
	ids := fx.load(t, fx.ownerID, student("Alice", "alice@x.com", 95))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := fx.svc.Dispatch(ctx, fx.ownerID, ids, creds)
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary == nil || len(summary.Results) != 0 || len(fx.sender.sent) != 0 {
		t.Fatalf("summary = %+v, sent %d", summary, len(fx.sender.sent))
	}
}

func TestSendTestGoesToConfiguredMailbox(t *testing.T) {
	fx := newFixture(t)
	if err := fx.svc.SendTest(context.Background(), creds); err != nil {
		t.Fatal(err)
	}
	if len(fx.sender.sent) != 1 {
		t.Fatalf("sent %d messages", len(fx.sender.sent))
	}
	msg := fx.sender.sent[0]
	if msg.To[0] != creds.Username || !strings.HasPrefix(msg.Subject, "TEST - ") {
		t.Fatalf("test message = %+v", msg)
	}

	if err := fx.svc.SendTest(context.Background(), mail.Credentials{}); !stderrors.Is(err, errors.ErrMailNotConfigured) {
		t.Fatalf("expected ErrMailNotConfigured, got %v", err)
	}
}
