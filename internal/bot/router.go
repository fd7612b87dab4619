package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"torrentbot/internal/apperrors"
	"torrentbot/internal/domain"
	"torrentbot/internal/metrics"
	"torrentbot/internal/pager"
	"torrentbot/internal/qbittorrent"
	"torrentbot/internal/scraper"
	"torrentbot/internal/storage"
)

// DefaultPrefix starts every command unless changed with setprefix.
const DefaultPrefix = "!"

// DefaultCooldown is the per-user window for rate-limited commands.
const DefaultCooldown = 10 * time.Second

// Downloader submits torrents to the download client.
type Downloader interface {
	Authenticate(ctx context.Context) (bool, error)
	Add(ctx context.Context, magnet string) (qbittorrent.Outcome, error)
	Info(ctx context.Context) (qbittorrent.Outcome, error)
}

// JobScheduler queues downloads for later.
type JobScheduler interface {
	Schedule(userID int64, magnet, fireAt string) (domain.ScheduledJob, error)
	Pending() int
}

// Replier delivers responses to the chat a request came from.
type Replier interface {
	Send(ctx context.Context, text string) error
	SendView(ctx context.Context, view pager.View) error
	EditView(ctx context.Context, view pager.View) error
}

// Request is an incoming chat message.
type Request struct {
	UserID int64
	ChatID int64
	Text   string
}

// Dependencies are the services commands operate on.
type Dependencies struct {
	Searcher   scraper.Searcher
	Downloader Downloader
	Scheduler  JobScheduler
	Repo       storage.Repository
	Pages      *pager.Store
}

// commandFunc runs a command with everything after the command name as args.
type commandFunc func(ctx context.Context, req Request, args string, reply Replier) error

type command struct {
	run      commandFunc
	cooldown bool
}

// Router parses prefixed messages, enforces cooldowns and turns every
// failure into exactly one reply.
type Router struct {
	deps      Dependencies
	cooldowns *Cooldowns
	commands  map[string]command
	log       logrus.FieldLogger

	mu     sync.RWMutex
	prefix string
}

// NewRouter creates a router with the full command set registered.
func NewRouter(deps Dependencies, prefix string, cooldown time.Duration, logger logrus.FieldLogger) *Router {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	r := &Router{
		deps:      deps,
		cooldowns: NewCooldowns(cooldown),
		log:       logger.WithField("component", "router"),
		prefix:    prefix,
	}
	r.registerCommands()
	return r
}

// Prefix returns the current command prefix.
func (r *Router) Prefix() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.prefix
}

// SetPrefix changes the command prefix for all users.
func (r *Router) SetPrefix(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefix = prefix
}

// Handle processes one message. Messages without the prefix are ignored.
func (r *Router) Handle(ctx context.Context, req Request, reply Replier) {
	prefix := r.Prefix()
	if !strings.HasPrefix(req.Text, prefix) {
		return
	}
	name, args := splitCommand(strings.TrimPrefix(req.Text, prefix))
	if name == "" {
		return
	}

	log := r.log.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"command": name,
	})
	log.Info("Received command")

	err := r.dispatch(ctx, req, name, args, reply)
	if err == nil {
		metrics.CommandsTotal.WithLabelValues(metricName(r, name), "ok").Inc()
		return
	}

	metrics.CommandsTotal.WithLabelValues(metricName(r, name), outcomeLabel(err)).Inc()
	if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrRateLimited) || errors.Is(err, apperrors.ErrUnknownCommand) {
		log.WithError(err).Info("Command rejected")
	} else {
		log.WithError(err).Error("Command failed")
	}

	if sendErr := reply.Send(ctx, r.errorMessage(err)); sendErr != nil {
		log.WithError(sendErr).Error("Failed to send error reply")
	}
}

// dispatch runs the named command, converting panics into errors.
func (r *Router) dispatch(ctx context.Context, req Request, name, args string, reply Replier) (err error) {
	cmd, ok := r.commands[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, apperrors.ErrUnknownCommand)
	}

	if cmd.cooldown {
		if wait, allowed := r.cooldowns.Allow(req.UserID, name); !allowed {
			return &apperrors.RateLimitError{Command: name, RetryAfter: wait}
		}
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("command %s panicked: %v", name, p)
		}
	}()
	return cmd.run(ctx, req, args, reply)
}

// errorMessage maps an error to the single reply the user sees.
func (r *Router) errorMessage(err error) string {
	prefix := r.Prefix()

	var rateLimit *apperrors.RateLimitError
	switch {
	case errors.Is(err, apperrors.ErrUnknownCommand):
		return fmt.Sprintf("Command not found. Use `%shelp_command` to see the list of available commands.", prefix)
	case errors.As(err, &rateLimit):
		return fmt.Sprintf("Command is on cooldown. Try again in %.2f seconds.", rateLimit.RetryAfter.Seconds())
	case errors.Is(err, apperrors.ErrMissingArgument):
		return fmt.Sprintf("Missing required argument. Use `%shelp_command` to see the correct usage.", prefix)
	case errors.Is(err, apperrors.ErrValidation):
		return fmt.Sprintf("Invalid argument. Use `%shelp_command` to see the correct usage.", prefix)
	default:
		return "An error occurred while processing the command."
	}
}

// HandleAction applies a button press to a result view.
func (r *Router) HandleAction(ctx context.Context, userID int64, sessionID string, action pager.Action, reply Replier) {
	log := r.log.WithFields(logrus.Fields{
		"user_id":    userID,
		"session_id": sessionID,
		"action":     action,
	})

	session, err := r.deps.Pages.Get(sessionID, userID)
	switch {
	case errors.Is(err, pager.ErrExpired):
		r.send(ctx, log, reply, "This result view has expired. Run the search again.")
		return
	case errors.Is(err, pager.ErrNotOwner):
		r.send(ctx, log, reply, "Only the user who ran this search can use these buttons.")
		return
	case err != nil:
		log.WithError(err).Error("Failed to resolve result view")
		return
	}

	switch action {
	case pager.ActionPrevious:
		if session.Previous() {
			r.editView(ctx, log, reply, session.Render())
		}
	case pager.ActionNext:
		if session.Next() {
			r.editView(ctx, log, reply, session.Render())
		}
	case pager.ActionAdd:
		r.addFromView(ctx, log, userID, session.Current(), reply)
	default:
		log.Warn("Unknown result view action")
	}
}

func (r *Router) addFromView(ctx context.Context, log logrus.FieldLogger, userID int64, item domain.SearchResult, reply Replier) {
	outcome, err := r.deps.Downloader.Add(ctx, item.MagnetLink)
	if err != nil {
		log.WithError(err).Error("Failed to add torrent from result view")
		metrics.TorrentsAddedTotal.WithLabelValues("pager", "error").Inc()
		r.send(ctx, log, reply, r.errorMessage(err))
		return
	}

	if !outcome.Success {
		metrics.TorrentsAddedTotal.WithLabelValues("pager", "rejected").Inc()
		r.send(ctx, log, reply, fmt.Sprintf("Failed to add torrent '%s'. Status code: %d", item.Title, outcome.StatusCode))
		return
	}

	metrics.TorrentsAddedTotal.WithLabelValues("pager", "ok").Inc()
	r.recordAddition(ctx, userID, domain.AddedTorrent{
		Title:      item.Title,
		MagnetLink: item.MagnetLink,
		Size:       item.SizeText,
	})
	r.send(ctx, log, reply, fmt.Sprintf("Torrent '%s' added successfully.", item.Title))
}

// recordAddition appends to the user's log. A storage failure is logged
// only; the torrent was already accepted.
func (r *Router) recordAddition(ctx context.Context, userID int64, added domain.AddedTorrent) {
	if err := r.deps.Repo.AppendAddition(ctx, userID, added); err != nil {
		r.log.WithError(err).WithField("user_id", userID).Error("Failed to record addition")
	}
}

func (r *Router) send(ctx context.Context, log logrus.FieldLogger, reply Replier, text string) {
	if err := reply.Send(ctx, text); err != nil {
		log.WithError(err).Error("Failed to send reply")
	}
}

func (r *Router) editView(ctx context.Context, log logrus.FieldLogger, reply Replier, view pager.View) {
	if err := reply.EditView(ctx, view); err != nil {
		log.WithError(err).Error("Failed to update result view")
	}
}

// splitCommand separates the command name from its arguments.
func splitCommand(text string) (name, args string) {
	text = strings.TrimSpace(text)
	if i := strings.IndexFunc(text, isSpace); i >= 0 {
		return text[:i], strings.TrimSpace(text[i:])
	}
	return text, ""
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// metricName keeps label cardinality bounded: unknown names share one label.
func metricName(r *Router, name string) string {
	if _, ok := r.commands[name]; ok {
		return name
	}
	return "unknown"
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrUnknownCommand):
		return "not_found"
	case errors.Is(err, apperrors.ErrRateLimited):
		return "cooldown"
	case errors.Is(err, apperrors.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
