package intake

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/complaint-service/internal/domain"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/submission"
)

const (
	hostelPrefix   = "hostel:"
	categoryPrefix = "category:"
	severityPrefix = "severity:"

	recentComplaintsLimit = 5
)

// Media references an attachment held by the chat platform.
type Media struct {
	FileID   string
	FileName string
}

// Input is one inbound chat turn.
type Input struct {
	ChatID   int64
	UserID   string
	Text     string
	Callback string
	Photo    *Media
}

// Button is an inline choice. Data is echoed back as Input.Callback.
type Button struct {
	Label string
	Data  string
}

// Reply is one outbound message.
type Reply struct {
	Text    string
	Buttons [][]Button
}

// Submitter files a completed draft with the backend.
type Submitter interface {
	Submit(ctx context.Context, draft domain.ComplaintDraft) (submission.Result, error)
}

// PhotoUploader attaches an image to a ticket.
type PhotoUploader interface {
	UploadPhoto(ctx context.Context, ticketID, fileName string, content []byte) error
}

// MediaFetcher downloads an attachment from the chat platform.
type MediaFetcher interface {
	Fetch(ctx context.Context, media Media) ([]byte, error)
}

// StatusReader answers read-only complaint queries.
type StatusReader interface {
	GetComplaint(ctx context.Context, ticketID string) (*submission.ComplaintView, error)
	ListComplaints(ctx context.Context, reporterID string, limit int) ([]submission.ComplaintView, error)
}

// Dependencies wires the engine collaborators.
type Dependencies struct {
	Store     SessionStore
	Submitter Submitter
	Uploader  PhotoUploader
	Media     MediaFetcher
	Status    StatusReader
	Logger    *zap.Logger
	Metrics   *observability.Metrics
}

// Engine drives conversations. Turns for the same chat are serialized.
type Engine struct {
	store     SessionStore
	submitter Submitter
	uploader  PhotoUploader
	media     MediaFetcher
	status    StatusReader
	logger    *zap.Logger
	metrics   *observability.Metrics

	locksMu sync.Mutex
	locks   map[int64]*chatLock
}

// chatLock is held by every turn in flight for one chat; the entry is
// removed when the last of them releases it.
type chatLock struct {
	mu   sync.Mutex
	refs int
}

func NewEngine(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     deps.Store,
		submitter: deps.Submitter,
		uploader:  deps.Uploader,
		media:     deps.Media,
		status:    deps.Status,
		logger:    logger,
		metrics:   deps.Metrics,
		locks:     make(map[int64]*chatLock),
	}
}

// Handle processes one turn and returns the replies to send. Errors are
// reserved for session storage failures; every user-facing problem becomes
// a reply.
func (e *Engine) Handle(ctx context.Context, in Input) ([]Reply, error) {
	unlock := e.lockChat(in.ChatID)
	defer unlock()

	session, err := e.store.Get(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}

	if in.Callback == "" {
		if command, args, ok := parseCommand(in.Text); ok {
			e.metrics.RecordIntakeTurn("command")
			return e.handleCommand(ctx, in, session, command, args)
		}
	}

	if session == nil {
		return []Reply{{Text: "Send /report to file a new complaint, or /help to see what I can do."}}, nil
	}

	e.metrics.RecordIntakeTurn(string(session.State))
	var replies []Reply
	switch session.State {
	case StateSelectHostel:
		replies = e.selectHostel(session, in)
	case StateGetRoomNumber:
		replies = e.getRoomNumber(session, in)
	case StateSelectCategory:
		replies = e.selectCategory(session, in)
	case StateGetDescription:
		replies = e.getDescription(session, in)
	case StateSelectSeverity:
		return e.selectSeverity(ctx, session, in)
	case StateAttachPhotos:
		replies = e.attachPhoto(ctx, session, in)
	default:
		if err := e.store.Delete(ctx, in.ChatID); err != nil {
			return nil, err
		}
		return []Reply{{Text: "Your previous conversation expired. Send /report to start again."}}, nil
	}

	if err := e.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return replies, nil
}

func (e *Engine) handleCommand(ctx context.Context, in Input, session *Session, command, args string) ([]Reply, error) {
	switch command {
	case "start", "help":
		return []Reply{{Text: helpText}}, nil

	case "report":
		fresh := &Session{
			ChatID: in.ChatID,
			UserID: in.UserID,
			State:  StateSelectHostel,
			Draft:  domain.ComplaintDraft{ReporterID: in.UserID},
		}
		if err := e.store.Save(ctx, fresh); err != nil {
			return nil, err
		}
		return []Reply{prompt(StateSelectHostel)}, nil

	case "cancel":
		if session == nil {
			return []Reply{{Text: "There is nothing to cancel."}}, nil
		}
		if err := e.store.Delete(ctx, in.ChatID); err != nil {
			return nil, err
		}
		return []Reply{{Text: "Complaint cancelled. Send /report whenever you want to start again."}}, nil

	case "done", "skip":
		if session == nil || session.State != StateAttachPhotos {
			if session != nil {
				return []Reply{{Text: "There is nothing to finish yet."}, prompt(session.State)}, nil
			}
			return []Reply{{Text: "There is nothing to finish."}}, nil
		}
		ticketID := session.TicketID
		if err := e.store.Delete(ctx, in.ChatID); err != nil {
			return nil, err
		}
		return []Reply{{Text: fmt.Sprintf("All done. Track your complaint any time with /status %s", ticketID)}}, nil

	case "status":
		return []Reply{e.lookupStatus(ctx, strings.TrimSpace(args))}, nil

	case "mycomplaints":
		return []Reply{e.listMine(ctx, in.UserID)}, nil

	default:
		reply := Reply{Text: "Unknown command. Send /help to see what I can do."}
		if session != nil {
			return []Reply{reply, prompt(session.State)}, nil
		}
		return []Reply{reply}, nil
	}
}

func (e *Engine) selectHostel(session *Session, in Input) []Reply {
	hostel := choice(in, hostelPrefix)
	if !domain.IsHostel(hostel) {
		return []Reply{{Text: "Please pick your hostel from the list."}, prompt(StateSelectHostel)}
	}
	session.Draft.Hostel = hostel
	session.State = StateGetRoomNumber
	return []Reply{prompt(StateGetRoomNumber)}
}

func (e *Engine) getRoomNumber(session *Session, in Input) []Reply {
	room, wing, ok := domain.NormalizeRoomNumber(in.Text)
	if !ok {
		return []Reply{{Text: "That doesn't look like a room number. Use one letter A-H followed by three digits, e.g. A101."}}
	}
	session.Draft.RoomNumber = room
	session.Draft.Wing = wing
	session.State = StateSelectCategory
	return []Reply{prompt(StateSelectCategory)}
}

func (e *Engine) selectCategory(session *Session, in Input) []Reply {
	category, ok := domain.CategoryByKey(choice(in, categoryPrefix))
	if !ok {
		return []Reply{{Text: "Please pick a category from the list."}, prompt(StateSelectCategory)}
	}
	session.Draft.Category = category.Key
	session.State = StateGetDescription
	return []Reply{prompt(StateGetDescription)}
}

func (e *Engine) getDescription(session *Session, in Input) []Reply {
	if !domain.ValidDescription(in.Text) {
		return []Reply{{Text: fmt.Sprintf("Please describe the problem in %d to %d characters.",
			domain.DescriptionMinLength, domain.DescriptionMaxLength)}}
	}
	session.Draft.Description = in.Text
	session.State = StateSelectSeverity
	return []Reply{prompt(StateSelectSeverity)}
}

func (e *Engine) selectSeverity(ctx context.Context, session *Session, in Input) ([]Reply, error) {
	severity := domain.Severity(strings.ToLower(choice(in, severityPrefix)))
	if !domain.IsSeverity(severity) {
		if err := e.store.Save(ctx, session); err != nil {
			return nil, err
		}
		return []Reply{{Text: "Please choose low, medium or high."}, prompt(StateSelectSeverity)}, nil
	}
	session.Draft.Severity = severity
	session.Draft.ReporterID = session.UserID

	result, err := e.submitter.Submit(ctx, session.Draft)
	if err != nil {
		e.logger.Error("complaint submission failed",
			zap.Int64("chat_id", session.ChatID),
			zap.Error(err))
		if delErr := e.store.Delete(ctx, session.ChatID); delErr != nil {
			return nil, delErr
		}
		return []Reply{{Text: "Sorry, we couldn't submit your complaint right now. Please try again later with /report."}}, nil
	}

	if result.Mock || result.TicketID == "" {
		e.logger.Warn("complaint accepted without a backend id",
			zap.Int64("chat_id", session.ChatID),
			zap.String("reference", result.TicketID))
		if err := e.store.Delete(ctx, session.ChatID); err != nil {
			return nil, err
		}
		text := "Your complaint was recorded but the server did not confirm it, so photos can't be attached. Please check back later."
		if result.TicketID != "" {
			text += fmt.Sprintf(" Reference: %s", result.TicketID)
		}
		return []Reply{{Text: text}}, nil
	}

	session.TicketID = result.TicketID
	session.State = StateAttachPhotos
	if err := e.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return []Reply{{Text: fmt.Sprintf(
		"Complaint submitted! Your complaint ID is %s.\nSend photos of the problem now, or /done to finish (/skip if you have none).",
		result.TicketID)}}, nil
}

func (e *Engine) attachPhoto(ctx context.Context, session *Session, in Input) []Reply {
	if in.Photo == nil {
		return []Reply{{Text: "Send a photo to attach it, or /done to finish."}}
	}
	content, err := e.media.Fetch(ctx, *in.Photo)
	if err == nil {
		err = e.uploader.UploadPhoto(ctx, session.TicketID, photoName(*in.Photo), content)
	}
	if err != nil {
		e.logger.Warn("photo attachment failed",
			zap.String("ticket_id", session.TicketID),
			zap.String("file_id", in.Photo.FileID),
			zap.Error(err))
		return []Reply{{Text: "That photo couldn't be uploaded. You can try again, or send /done to finish."}}
	}
	return []Reply{{Text: "Photo attached. Send another, or /done to finish."}}
}

func (e *Engine) lookupStatus(ctx context.Context, ticketID string) Reply {
	if ticketID == "" {
		return Reply{Text: "Usage: /status <complaint id>"}
	}
	if strings.HasPrefix(ticketID, "MOCK-") {
		return Reply{Text: "That reference was never confirmed by the server, so there is no status to show."}
	}
	view, err := e.status.GetComplaint(ctx, ticketID)
	if err != nil {
		return e.readFailure(err, "No complaint found with that ID.")
	}
	return Reply{Text: formatComplaint(*view)}
}

func (e *Engine) listMine(ctx context.Context, userID string) Reply {
	views, err := e.status.ListComplaints(ctx, userID, recentComplaintsLimit)
	if err != nil {
		return e.readFailure(err, "You have no complaints yet.")
	}
	if len(views) == 0 {
		return Reply{Text: "You have no complaints yet. Send /report to file one."}
	}
	var b strings.Builder
	b.WriteString("Your recent complaints:\n")
	for _, v := range views {
		fmt.Fprintf(&b, "\n%s: %s (%s, %s)", v.ID, v.Status, v.Hostel, v.RoomNumber)
	}
	return Reply{Text: b.String()}
}

func (e *Engine) readFailure(err error, notFound string) Reply {
	var statusErr *submission.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return Reply{Text: notFound}
	}
	e.logger.Warn("complaint lookup failed", zap.Error(err))
	return Reply{Text: "Complaint lookups are unavailable right now. Please try again later."}
}

func (e *Engine) lockChat(chatID int64) func() {
	e.locksMu.Lock()
	lock, ok := e.locks[chatID]
	if !ok {
		lock = &chatLock{}
		e.locks[chatID] = lock
	}
	lock.refs++
	e.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		e.locksMu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(e.locks, chatID)
		}
		e.locksMu.Unlock()
	}
}

// parseCommand splits "/cmd@bot args" into cmd and args.
func parseCommand(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, args, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	return strings.ToLower(head), args, head != ""
}

// choice reads a selection from callback data carrying prefix, or from the
// raw text when the user typed the value.
func choice(in Input, prefix string) string {
	if in.Callback != "" {
		value, ok := strings.CutPrefix(in.Callback, prefix)
		if !ok {
			return ""
		}
		return value
	}
	return strings.TrimSpace(in.Text)
}

func photoName(media Media) string {
	if media.FileName != "" {
		return media.FileName
	}
	return media.FileID + ".jpg"
}
