package submission_test

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/jkamau/darasa/core/access"
	"github.com/jkamau/darasa/core/assignment"
	"github.com/jkamau/darasa/core/submission"
	"github.com/jkamau/darasa/core/user"
	emailsvc "github.com/jkamau/darasa/services/email"
	logsvc "github.com/jkamau/darasa/services/logger"
	inmemdb "github.com/jkamau/darasa/storage/database/inmem"
)

var ctx = context.Background()

type fixture struct {
	subSvc  *submission.Service
	assSvc  *assignment.Service
	teacher user.User
	other   user.User
	student user.User
	buddy   user.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	usrRepo := inmemdb.NewUserRepository(db)
	assRepo := inmemdb.NewAssignmentRepository(db)
	subRepo := inmemdb.NewSubmissionRepository(db)

	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	f := &fixture{
		subSvc: submission.NewService(subRepo, assRepo, usrRepo, emailsvc.NewConsoleServiceMock(), logger),
		assSvc: assignment.NewService(assRepo),
	}

	newUsr := func(id, name, role string) user.User {
		usr := user.User{ID: id, Name: name, Role: role}
		usr.SetActive(true)
		usr, err := usrRepo.CreateUser(ctx, usr)
		if err != nil {
			t.Fatalf("CreateUser(%s): %v", id, err)
		}
		return usr
	}
	f.teacher = newUsr("t1", "Asha Teacher", user.RoleTeacher)
	f.other = newUsr("t2", "Busi Teacher", user.RoleTeacher)
	f.student = newUsr("s1", "Chit Student", user.RoleStudent)
	f.buddy = newUsr("s2", "Didi Student", user.RoleStudent)
	return f
}

func (f *fixture) publishedAssignment(t *testing.T, title string) assignment.Assignment {
	t.Helper()
	a, err := f.assSvc.Create(ctx, f.teacher, assignment.NewAssignment{Title: title, DueDate: time.Now().Add(48 * time.Hour)})
	if err != nil {
		t.Fatalf("Create(%q): %v", title, err)
	}
	if a, err = f.assSvc.Publish(ctx, f.teacher, a.ID); err != nil {
		t.Fatalf("Publish(%q): %v", title, err)
	}
	return a
}

func TestService_Submit(t *testing.T) {
	f := newFixture(t)
	a := f.publishedAssignment(t, "Essay")

	t.Run("teacher rejected", func(t *testing.T) {
		_, err := f.subSvc.Submit(ctx, f.teacher, a.ID, submission.NewSubmission{Answer: "hi"})
		if errors.Cause(err) != access.ErrPermissionDenied {
			t.Errorf("error = %v; want %v", err, access.ErrPermissionDenied)
		}
	})

	t.Run("empty answer rejected", func(t *testing.T) {
		_, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{})
		if err == nil {
			t.Fatal("expected a validation error")
		}
	})

	t.Run("unknown assignment", func(t *testing.T) {
		_, err := f.subSvc.Submit(ctx, f.student, "nope", submission.NewSubmission{Answer: "hi"})
		if errors.Cause(err) != assignment.ErrNotFound {
			t.Errorf("error = %v; want %v", err, assignment.ErrNotFound)
		}
	})

	t.Run("draft does not accept submissions", func(t *testing.T) {
		draft, err := f.assSvc.Create(ctx, f.teacher, assignment.NewAssignment{Title: "Draft", DueDate: time.Now().Add(time.Hour)})
		if err != nil {
			t.Fatalf("Create(): %v", err)
		}
		_, err = f.subSvc.Submit(ctx, f.student, draft.ID, submission.NewSubmission{Answer: "hi"})
		if errors.Cause(err) != submission.ErrAssignmentNotOpen {
			t.Errorf("error = %v; want %v", err, submission.ErrAssignmentNotOpen)
		}
	})

	t.Run("completed does not accept submissions", func(t *testing.T) {
		done := f.publishedAssignment(t, "Done")
		if _, err := f.assSvc.Complete(ctx, f.teacher, done.ID); err != nil {
			t.Fatalf("Complete(): %v", err)
		}
		_, err := f.subSvc.Submit(ctx, f.student, done.ID, submission.NewSubmission{Answer: "hi"})
		if errors.Cause(err) != submission.ErrAssignmentNotOpen {
			t.Errorf("error = %v; want %v", err, submission.ErrAssignmentNotOpen)
		}
	})

	t.Run("submitted", func(t *testing.T) {
		s, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{Answer: "my answer"})
		if err != nil {
			t.Fatalf("Submit(): %v", err)
		}
		if s.AssignmentID != a.ID || s.StudentID != f.student.ID {
			t.Errorf("unexpected keys: %v/%v", s.AssignmentID, s.StudentID)
		}
		if s.Reviewed {
			t.Error("new submission must not be reviewed")
		}
		if s.SubmittedAt.IsZero() {
			t.Error("submittedAt not set")
		}
	})

	t.Run("one submission per student", func(t *testing.T) {
		_, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{Answer: "second try"})
		if errors.Cause(err) != submission.ErrDuplicate {
			t.Errorf("error = %v; want %v", err, submission.ErrDuplicate)
		}
		// first answer untouched
		s, err := f.subSvc.GetMine(ctx, f.student, a.ID)
		if err != nil {
			t.Fatalf("GetMine(): %v", err)
		}
		if s.Answer != "my answer" {
			t.Errorf("answer = %q; want the first submission preserved", s.Answer)
		}
	})
}

func TestService_GetMine(t *testing.T) {
	f := newFixture(t)
	a := f.publishedAssignment(t, "Essay")

	t.Run("absence is not an error", func(t *testing.T) {
		s, err := f.subSvc.GetMine(ctx, f.student, a.ID)
		if err != nil {
			t.Fatalf("GetMine(): %v", err)
		}
		if s != nil {
			t.Errorf("got %+v; want nil", s)
		}
	})

	t.Run("own submission returned", func(t *testing.T) {
		if _, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{Answer: "hi"}); err != nil {
			t.Fatalf("Submit(): %v", err)
		}
		s, err := f.subSvc.GetMine(ctx, f.student, a.ID)
		if err != nil {
			t.Fatalf("GetMine(): %v", err)
		}
		if s == nil || s.Answer != "hi" {
			t.Errorf("got %+v; want own submission", s)
		}
	})

	t.Run("someone else's submission stays invisible", func(t *testing.T) {
		s, err := f.subSvc.GetMine(ctx, f.buddy, a.ID)
		if err != nil {
			t.Fatalf("GetMine(): %v", err)
		}
		if s != nil {
			t.Errorf("got %+v; want nil", s)
		}
	})
}

func TestService_QueryForAssignment(t *testing.T) {
	f := newFixture(t)
	a := f.publishedAssignment(t, "Essay")

	if _, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{Answer: "first"}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if _, err := f.subSvc.Submit(ctx, f.buddy, a.ID, submission.NewSubmission{Answer: "second"}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	t.Run("student rejected", func(t *testing.T) {
		_, err := f.subSvc.QueryForAssignment(ctx, f.student, a.ID)
		if errors.Cause(err) != access.ErrPermissionDenied {
			t.Errorf("error = %v; want %v", err, access.ErrPermissionDenied)
		}
	})

	t.Run("non-owner teacher rejected", func(t *testing.T) {
		_, err := f.subSvc.QueryForAssignment(ctx, f.other, a.ID)
		if errors.Cause(err) != access.ErrPermissionDenied {
			t.Errorf("error = %v; want %v", err, access.ErrPermissionDenied)
		}
	})

	t.Run("owner lists in submission order with student snapshots", func(t *testing.T) {
		subs, err := f.subSvc.QueryForAssignment(ctx, f.teacher, a.ID)
		if err != nil {
			t.Fatalf("QueryForAssignment(): %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("len = %d; want 2", len(subs))
		}
		if !subs[0].SubmittedAt.Before(subs[1].SubmittedAt) && !subs[0].SubmittedAt.Equal(subs[1].SubmittedAt) {
			t.Error("submissions not ordered by submittedAt")
		}
		for _, s := range subs {
			if s.Student == nil || s.Student.ID != s.StudentID {
				t.Errorf("missing student snapshot on %v", s.StudentID)
			}
		}
	})
}

func TestService_Review(t *testing.T) {
	f := newFixture(t)
	a := f.publishedAssignment(t, "Essay")

	if _, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{Answer: "hi"}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	t.Run("non-owner teacher rejected", func(t *testing.T) {
		_, err := f.subSvc.Review(ctx, f.other, a.ID, f.student.ID, submission.ReviewSubmission{ReviewNote: "nope"})
		if errors.Cause(err) != access.ErrPermissionDenied {
			t.Errorf("error = %v; want %v", err, access.ErrPermissionDenied)
		}
	})

	t.Run("student rejected", func(t *testing.T) {
		_, err := f.subSvc.Review(ctx, f.student, a.ID, f.student.ID, submission.ReviewSubmission{ReviewNote: "nope"})
		if errors.Cause(err) != access.ErrPermissionDenied {
			t.Errorf("error = %v; want %v", err, access.ErrPermissionDenied)
		}
	})

	t.Run("unknown submission", func(t *testing.T) {
		_, err := f.subSvc.Review(ctx, f.teacher, a.ID, f.buddy.ID, submission.ReviewSubmission{ReviewNote: "?"})
		if errors.Cause(err) != submission.ErrNotFound {
			t.Errorf("error = %v; want %v", err, submission.ErrNotFound)
		}
	})

	t.Run("reviewed once", func(t *testing.T) {
		s, err := f.subSvc.Review(ctx, f.teacher, a.ID, f.student.ID, submission.ReviewSubmission{ReviewNote: "well done"})
		if err != nil {
			t.Fatalf("Review(): %v", err)
		}
		if !s.Reviewed || s.ReviewNote.String != "well done" || !s.ReviewedAt.Valid {
			t.Errorf("got %+v; want a reviewed submission with note", s)
		}
	})

	t.Run("second review rejected, first note preserved", func(t *testing.T) {
		_, err := f.subSvc.Review(ctx, f.teacher, a.ID, f.student.ID, submission.ReviewSubmission{ReviewNote: "changed my mind"})
		if errors.Cause(err) != submission.ErrAlreadyReviewed {
			t.Errorf("error = %v; want %v", err, submission.ErrAlreadyReviewed)
		}
		s, err := f.subSvc.GetMine(ctx, f.student, a.ID)
		if err != nil {
			t.Fatalf("GetMine(): %v", err)
		}
		if s.ReviewNote.String != "well done" {
			t.Errorf("note = %q; want the first note preserved", s.ReviewNote.String)
		}
	})

	t.Run("empty note allowed", func(t *testing.T) {
		b := f.publishedAssignment(t, "Quiz")
		if _, err := f.subSvc.Submit(ctx, f.student, b.ID, submission.NewSubmission{Answer: "hey"}); err != nil {
			t.Fatalf("Submit(): %v", err)
		}
		s, err := f.subSvc.Review(ctx, f.teacher, b.ID, f.student.ID, submission.ReviewSubmission{})
		if err != nil {
			t.Fatalf("Review(): %v", err)
		}
		if !s.Reviewed {
			t.Error("submission not marked reviewed")
		}
	})
}

func TestService_QueryReviewed(t *testing.T) {
	f := newFixture(t)
	a := f.publishedAssignment(t, "Essay")
	b := f.publishedAssignment(t, "Quiz")

	for _, id := range []string{a.ID, b.ID} {
		if _, err := f.subSvc.Submit(ctx, f.student, id, submission.NewSubmission{Answer: "hi"}); err != nil {
			t.Fatalf("Submit(): %v", err)
		}
	}
	if _, err := f.subSvc.Submit(ctx, f.buddy, a.ID, submission.NewSubmission{Answer: "yo"}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}
	if _, err := f.subSvc.Review(ctx, f.teacher, a.ID, f.student.ID, submission.ReviewSubmission{ReviewNote: "ok"}); err != nil {
		t.Fatalf("Review(): %v", err)
	}

	t.Run("teacher rejected", func(t *testing.T) {
		_, err := f.subSvc.QueryReviewed(ctx, f.teacher)
		if errors.Cause(err) != access.ErrPermissionDenied {
			t.Errorf("error = %v; want %v", err, access.ErrPermissionDenied)
		}
	})

	t.Run("only own reviewed submissions, paired with assignments", func(t *testing.T) {
		reviewed, err := f.subSvc.QueryReviewed(ctx, f.student)
		if err != nil {
			t.Fatalf("QueryReviewed(): %v", err)
		}
		if len(reviewed) != 1 {
			t.Fatalf("len = %d; want 1", len(reviewed))
		}
		got := reviewed[0]
		if got.AssignmentID != a.ID || got.Assignment.ID != a.ID || got.ReviewNote.String != "ok" {
			t.Errorf("got %+v; want the reviewed Essay submission", got)
		}
	})

	t.Run("buddy has none reviewed", func(t *testing.T) {
		reviewed, err := f.subSvc.QueryReviewed(ctx, f.buddy)
		if err != nil {
			t.Fatalf("QueryReviewed(): %v", err)
		}
		if len(reviewed) != 0 {
			t.Errorf("len = %d; want 0", len(reviewed))
		}
	})
}

func TestService_Submit_concurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	a := f.publishedAssignment(t, "Race")

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		answer := fmt.Sprintf("answer %d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{Answer: answer})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var created, duplicates int
	for err := range errs {
		switch errors.Cause(err) {
		case nil:
			created++
		case submission.ErrDuplicate:
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if created != 1 || duplicates != 1 {
		t.Errorf("created = %d, duplicates = %d; want exactly one of each", created, duplicates)
	}

	// the winner's answer sticks
	sub, err := f.subSvc.GetMine(ctx, f.student, a.ID)
	if err != nil || sub == nil {
		t.Fatalf("GetMine() = %v, %v", sub, err)
	}
	if sub.Answer != "answer 0" && sub.Answer != "answer 1" {
		t.Errorf("answer = %q; want one of the racing answers", sub.Answer)
	}
}

func TestService_Review_concurrentDoubleReview(t *testing.T) {
	f := newFixture(t)
	a := f.publishedAssignment(t, "Race")
	if _, err := f.subSvc.Submit(ctx, f.student, a.ID, submission.NewSubmission{Answer: "42"}); err != nil {
		t.Fatalf("Submit(): %v", err)
	}

	type result struct {
		note string
		err  error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for _, note := range []string{"first pass", "second pass"} {
		note := note
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.subSvc.Review(ctx, f.teacher, a.ID, f.student.ID, submission.ReviewSubmission{ReviewNote: note})
			results <- result{note: note, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var winnerNote string
	var reviewed, rejected int
	for res := range results {
		switch errors.Cause(res.err) {
		case nil:
			reviewed++
			winnerNote = res.note
		case submission.ErrAlreadyReviewed:
			rejected++
		default:
			t.Fatalf("unexpected error: %v", res.err)
		}
	}
	if reviewed != 1 || rejected != 1 {
		t.Fatalf("reviewed = %d, rejected = %d; want exactly one of each", reviewed, rejected)
	}

	// the loser must not have clobbered the winner's note
	sub, err := f.subSvc.GetMine(ctx, f.student, a.ID)
	if err != nil || sub == nil {
		t.Fatalf("GetMine() = %v, %v", sub, err)
	}
	if !sub.Reviewed || sub.ReviewNote.String != winnerNote {
		t.Errorf("got reviewed=%v note=%q; want the winning note %q", sub.Reviewed, sub.ReviewNote.String, winnerNote)
	}
}
