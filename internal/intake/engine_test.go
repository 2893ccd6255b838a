package intake

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/submission"
)

const chatID int64 = 1001

type fakeBackend struct {
	submitted []domain.ComplaintDraft
	result    submission.Result
	submitErr error

	uploads   []string
	uploadErr error

	views map[string]submission.ComplaintView
	list  []submission.ComplaintView
}

func (f *fakeBackend) Submit(_ context.Context, draft domain.ComplaintDraft) (submission.Result, error) {
	f.submitted = append(f.submitted, draft)
	return f.result, f.submitErr
}

func (f *fakeBackend) UploadPhoto(_ context.Context, ticketID, fileName string, _ []byte) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, ticketID+"/"+fileName)
	return nil
}

func (f *fakeBackend) Fetch(_ context.Context, media Media) ([]byte, error) {
	if media.FileID == "broken" {
		return nil, errors.New("download failed")
	}
	return []byte("img"), nil
}

func (f *fakeBackend) GetComplaint(_ context.Context, id string) (*submission.ComplaintView, error) {
	v, ok := f.views[id]
	if !ok {
		return nil, &submission.StatusError{Op: "get complaint", StatusCode: http.StatusNotFound}
	}
	return &v, nil
}

func (f *fakeBackend) ListComplaints(context.Context, string, int) ([]submission.ComplaintView, error) {
	return f.list, nil
}

func newEngine(backend *fakeBackend) (*Engine, *MemoryStore) {
	store := NewMemoryStore(0)
	return NewEngine(Dependencies{
		Store:     store,
		Submitter: backend,
		Uploader:  backend,
		Media:     backend,
		Status:    backend,
	}), store
}

func say(t *testing.T, e *Engine, in Input) []Reply {
	t.Helper()
	in.ChatID = chatID
	in.UserID = "tg-42"
	replies, err := e.Handle(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, replies)
	return replies
}

func state(t *testing.T, store *MemoryStore) State {
	t.Helper()
	s, err := store.Get(context.Background(), chatID)
	require.NoError(t, err)
	if s == nil {
		return ""
	}
	return s.State
}

func walkToSeverity(t *testing.T, e *Engine) {
	say(t, e, Input{Text: "/report"})
	say(t, e, Input{Callback: "hostel:John"})
	say(t, e, Input{Text: "a101"})
	say(t, e, Input{Callback: "category:plumbing"})
	say(t, e, Input{Text: "Leaking pipe under sink"})
}

func TestFullReportFlow(t *testing.T) {
	backend := &fakeBackend{result: submission.Result{TicketID: "c-1"}}
	e, store := newEngine(backend)

	replies := say(t, e, Input{Text: "/report"})
	assert.Equal(t, StateSelectHostel, state(t, store))
	require.NotEmpty(t, replies[0].Buttons)
	assert.Equal(t, "hostel:John", replies[0].Buttons[0][0].Data)

	say(t, e, Input{Callback: "hostel:John"})
	assert.Equal(t, StateGetRoomNumber, state(t, store))

	say(t, e, Input{Text: "a101"})
	assert.Equal(t, StateSelectCategory, state(t, store))

	replies = say(t, e, Input{Callback: "category:plumbing"})
	assert.Equal(t, StateGetDescription, state(t, store))
	assert.Empty(t, replies[0].Buttons)

	say(t, e, Input{Text: "Leaking pipe under sink"})
	assert.Equal(t, StateSelectSeverity, state(t, store))

	replies = say(t, e, Input{Callback: "severity:high"})
	assert.Contains(t, replies[0].Text, "c-1")
	assert.Equal(t, StateAttachPhotos, state(t, store))

	require.Len(t, backend.submitted, 1)
	assert.Equal(t, domain.ComplaintDraft{
		ReporterID:  "tg-42",
		Hostel:      "John",
		RoomNumber:  "A101",
		Wing:        "A",
		Category:    "plumbing",
		Description: "Leaking pipe under sink",
		Severity:    domain.SeverityHigh,
	}, backend.submitted[0])

	say(t, e, Input{Photo: &Media{FileID: "f1"}})
	say(t, e, Input{Photo: &Media{FileID: "f2", FileName: "sink.png"}})
	assert.Equal(t, []string{"c-1/f1.jpg", "c-1/sink.png"}, backend.uploads)

	replies = say(t, e, Input{Text: "/done"})
	assert.Contains(t, replies[0].Text, "/status c-1")
	assert.Equal(t, State(""), state(t, store))
}

func TestInvalidChoicesKeepState(t *testing.T) {
	e, store := newEngine(&fakeBackend{})
	say(t, e, Input{Text: "/report"})

	say(t, e, Input{Callback: "hostel:Atlantis"})
	assert.Equal(t, StateSelectHostel, state(t, store))
	say(t, e, Input{Callback: "category:plumbing"})
	assert.Equal(t, StateSelectHostel, state(t, store))

	say(t, e, Input{Text: "Paul"})
	assert.Equal(t, StateGetRoomNumber, state(t, store))
}

func TestRoomNumberValidation(t *testing.T) {
	cases := map[string]bool{
		"A101":  true,
		"h999":  true,
		"I101":  false,
		"A10":   false,
		"A1011": false,
		" A101": false,
		"":      false,
	}
	for input, ok := range cases {
		e, store := newEngine(&fakeBackend{})
		say(t, e, Input{Text: "/report"})
		say(t, e, Input{Callback: "hostel:John"})
		say(t, e, Input{Text: input})
		want := StateGetRoomNumber
		if ok {
			want = StateSelectCategory
		}
		assert.Equal(t, want, state(t, store), "room %q", input)
	}
}

func TestDescriptionBounds(t *testing.T) {
	cases := map[int]bool{9: false, 10: true, 500: true, 501: false}
	for length, ok := range cases {
		e, store := newEngine(&fakeBackend{})
		say(t, e, Input{Text: "/report"})
		say(t, e, Input{Callback: "hostel:John"})
		say(t, e, Input{Text: "B202"})
		say(t, e, Input{Callback: "category:electrical"})
		say(t, e, Input{Text: strings.Repeat("é", length)})
		want := StateGetDescription
		if ok {
			want = StateSelectSeverity
		}
		assert.Equal(t, want, state(t, store), "length %d", length)
	}
}

func TestCancelClearsSession(t *testing.T) {
	e, store := newEngine(&fakeBackend{})
	walkToSeverity(t, e)

	replies := say(t, e, Input{Text: "/cancel"})
	assert.Contains(t, replies[0].Text, "cancelled")
	assert.Equal(t, State(""), state(t, store))

	replies = say(t, e, Input{Text: "/cancel"})
	assert.Contains(t, replies[0].Text, "nothing to cancel")
}

func TestMockResultEndsWithoutPhotoStep(t *testing.T) {
	backend := &fakeBackend{result: submission.Result{TicketID: "MOCK-1", Mock: true}}
	e, store := newEngine(backend)
	walkToSeverity(t, e)

	replies := say(t, e, Input{Callback: "severity:low"})
	assert.Contains(t, replies[0].Text, "did not confirm")
	assert.Contains(t, replies[0].Text, "MOCK-1")
	assert.Equal(t, State(""), state(t, store))
}

func TestEmptyIDEndsWithoutPhotoStep(t *testing.T) {
	e, store := newEngine(&fakeBackend{result: submission.Result{}})
	walkToSeverity(t, e)

	say(t, e, Input{Callback: "severity:medium"})
	assert.Equal(t, State(""), state(t, store))
}

func TestSubmitErrorEndsSession(t *testing.T) {
	e, store := newEngine(&fakeBackend{submitErr: errors.New("backend down")})
	walkToSeverity(t, e)

	replies := say(t, e, Input{Callback: "severity:high"})
	assert.Contains(t, replies[0].Text, "couldn't submit")
	assert.Equal(t, State(""), state(t, store))
}

func TestPhotoFailureKeepsAttachState(t *testing.T) {
	backend := &fakeBackend{result: submission.Result{TicketID: "c-7"}}
	e, store := newEngine(backend)
	walkToSeverity(t, e)
	say(t, e, Input{Callback: "severity:high"})

	replies := say(t, e, Input{Photo: &Media{FileID: "broken"}})
	assert.Contains(t, replies[0].Text, "couldn't be uploaded")
	assert.Equal(t, StateAttachPhotos, state(t, store))

	backend.uploadErr = errors.New("503")
	say(t, e, Input{Photo: &Media{FileID: "ok"}})
	assert.Equal(t, StateAttachPhotos, state(t, store))

	say(t, e, Input{Text: "some words"})
	assert.Equal(t, StateAttachPhotos, state(t, store))

	say(t, e, Input{Text: "/skip"})
	assert.Equal(t, State(""), state(t, store))
}

func TestGlobalCommandsDoNotDisturbFlow(t *testing.T) {
	backend := &fakeBackend{views: map[string]submission.ComplaintView{
		"c-3": {ID: "c-3", Status: "in_progress", Hostel: "Mary", RoomNumber: "C303", Category: "pest", Severity: "low"},
	}}
	e, store := newEngine(backend)
	say(t, e, Input{Text: "/report"})
	say(t, e, Input{Callback: "hostel:Mary"})

	replies := say(t, e, Input{Text: "/status c-3"})
	assert.Contains(t, replies[0].Text, "in progress")
	assert.Contains(t, replies[0].Text, "Pest Control")
	assert.Equal(t, StateGetRoomNumber, state(t, store))

	replies = say(t, e, Input{Text: "/status missing"})
	assert.Contains(t, replies[0].Text, "No complaint found")

	replies = say(t, e, Input{Text: "/done"})
	assert.Contains(t, replies[0].Text, "nothing to finish")
	assert.Equal(t, StateGetRoomNumber, state(t, store))

	say(t, e, Input{Text: "/help@hostel_bot"})
	assert.Equal(t, StateGetRoomNumber, state(t, store))
}

func TestMyComplaints(t *testing.T) {
	backend := &fakeBackend{list: []submission.ComplaintView{
		{ID: "c-1", Status: "reported", Hostel: "John", RoomNumber: "A101"},
	}}
	e, _ := newEngine(backend)

	replies := say(t, e, Input{Text: "/mycomplaints"})
	assert.Contains(t, replies[0].Text, "c-1: reported (John, A101)")

	backend.list = nil
	replies = say(t, e, Input{Text: "/mycomplaints"})
	assert.Contains(t, replies[0].Text, "no complaints")
}

func TestNoSessionHint(t *testing.T) {
	e, _ := newEngine(&fakeBackend{})
	replies := say(t, e, Input{Text: "hello"})
	assert.Contains(t, replies[0].Text, "/report")
}

func TestParseCommand(t *testing.T) {
	cmd, args, ok := parseCommand("/Status@hostel_bot  abc ")
	assert.True(t, ok)
	assert.Equal(t, "status", cmd)
	assert.Equal(t, "abc", strings.TrimSpace(args))

	_, _, ok = parseCommand("A101")
	assert.False(t, ok)
}

func (e *Engine) lockedChats() int {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	return len(e.locks)
}

func TestChatLocksReleasedAfterTurns(t *testing.T) {
	e, store := newEngine(&fakeBackend{})

	var wg sync.WaitGroup
	for chat := int64(1); chat <= 50; chat++ {
		for turn := 0; turn < 3; turn++ {
			wg.Add(1)
			go func(chat int64) {
				defer wg.Done()
				_, err := e.Handle(context.Background(), Input{ChatID: chat, UserID: "tg", Text: "/report"})
				assert.NoError(t, err)
			}(chat)
		}
	}
	wg.Wait()

	assert.Zero(t, e.lockedChats())
	for chat := int64(1); chat <= 50; chat++ {
		session, err := store.Get(context.Background(), chat)
		require.NoError(t, err)
		require.NotNil(t, session)
		assert.Equal(t, StateSelectHostel, session.State)
	}
}
