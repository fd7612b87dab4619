package bot

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"torrentbot/internal/apperrors"
	"torrentbot/internal/domain"
	"torrentbot/internal/metrics"
	"torrentbot/internal/scheduler"
	"torrentbot/internal/scraper"
)

// bytesPerMB converts setfilter arguments to bytes.
const bytesPerMB = 1024 * 1024

func (r *Router) registerCommands() {
	help := command{run: r.helpCommand}
	r.commands = map[string]command{
		"search":           {run: r.searchCommand, cooldown: true},
		"add":              {run: r.addCommand, cooldown: true},
		"recent_searches":  {run: r.recentSearchesCommand},
		"recent_additions": {run: r.recentAdditionsCommand},
		"setprefix":        {run: r.setPrefixCommand},
		"setfilter":        {run: r.setFilterCommand},
		"schedule":         {run: r.scheduleCommand},
		"stats":            {run: r.statsCommand},
		"help_command":     help,
		"help":             help,
		"test_qbittorrent": {run: r.testQBittorrentCommand},
	}
}

func (r *Router) searchCommand(ctx context.Context, req Request, args string, reply Replier) error {
	if args == "" {
		return fmt.Errorf("search needs a query: %w", apperrors.ErrMissingArgument)
	}

	pref, err := r.deps.Repo.Preference(ctx, req.UserID)
	if err != nil {
		return err
	}

	results := r.deps.Searcher.Search(ctx, args, pref.MinSizeBytes, pref.MaxSizeBytes)
	if len(results) == 0 {
		return reply.Send(ctx, "No results found.")
	}

	if err := r.deps.Repo.SaveSearch(ctx, req.UserID, args); err != nil {
		return err
	}

	session, err := r.deps.Pages.Open(req.UserID, results)
	if err != nil {
		return err
	}
	return reply.SendView(ctx, session.Render())
}

func (r *Router) addCommand(ctx context.Context, req Request, args string, reply Replier) error {
	if args == "" {
		return fmt.Errorf("add needs a magnet link: %w", apperrors.ErrMissingArgument)
	}

	outcome, err := r.deps.Downloader.Add(ctx, args)
	if err != nil {
		metrics.TorrentsAddedTotal.WithLabelValues("command", "error").Inc()
		return err
	}
	if !outcome.Success {
		metrics.TorrentsAddedTotal.WithLabelValues("command", "rejected").Inc()
		return reply.Send(ctx, fmt.Sprintf("Failed to add torrent. Status code: %d", outcome.StatusCode))
	}

	metrics.TorrentsAddedTotal.WithLabelValues("command", "ok").Inc()
	r.recordAddition(ctx, req.UserID, domain.AddedTorrent{
		Title:      magnetTitle(args),
		MagnetLink: args,
		Size:       domain.Placeholder,
	})
	return reply.Send(ctx, "Torrent added successfully.")
}

func (r *Router) recentSearchesCommand(ctx context.Context, req Request, _ string, reply Replier) error {
	query, ok, err := r.deps.Repo.LastSearch(ctx, req.UserID)
	if err != nil {
		return err
	}
	if !ok {
		query = "No recent searches found."
	}
	return reply.Send(ctx, "Your recent search: "+query)
}

func (r *Router) recentAdditionsCommand(ctx context.Context, req Request, _ string, reply Replier) error {
	additions, err := r.deps.Repo.Additions(ctx, req.UserID)
	if err != nil {
		return err
	}
	if len(additions) == 0 {
		return reply.Send(ctx, "No recent additions found.")
	}

	var b strings.Builder
	b.WriteString("Recent Additions")
	for _, added := range additions {
		fmt.Fprintf(&b, "\n\n%s\nSize: %s\nMagnet: %s\nAdded: %s",
			added.Title, displaySize(added.Size), added.MagnetLink, humanize.Time(added.AddedAt))
	}
	return reply.Send(ctx, b.String())
}

func (r *Router) setPrefixCommand(ctx context.Context, _ Request, args string, reply Replier) error {
	if args == "" {
		return fmt.Errorf("setprefix needs a prefix: %w", apperrors.ErrMissingArgument)
	}
	if strings.ContainsFunc(args, isSpace) {
		return apperrors.Validationf("prefix %q contains whitespace", args)
	}

	r.SetPrefix(args)
	r.log.WithField("prefix", args).Info("Command prefix changed")
	return reply.Send(ctx, "Command prefix set to "+args)
}

func (r *Router) setFilterCommand(ctx context.Context, req Request, args string, reply Replier) error {
	minMB, maxMB := 0.0, math.Inf(1)

	fields := strings.Fields(args)
	if len(fields) > 2 {
		return apperrors.Validationf("setfilter takes at most two sizes, got %d", len(fields))
	}
	if len(fields) > 0 {
		v, err := parseMB(fields[0])
		if err != nil {
			return err
		}
		minMB = v
	}
	if len(fields) > 1 {
		v, err := parseMB(fields[1])
		if err != nil {
			return err
		}
		maxMB = v
	}
	if minMB > maxMB {
		return apperrors.Validationf("minimum size %v exceeds maximum %v", minMB, maxMB)
	}

	pref := domain.UserPreference{
		UserID:       req.UserID,
		MinSizeBytes: minMB * bytesPerMB,
		MaxSizeBytes: maxMB * bytesPerMB,
	}
	if err := r.deps.Repo.SavePreference(ctx, pref); err != nil {
		return err
	}
	return reply.Send(ctx, fmt.Sprintf("Filter set. Min size: %s MB, Max size: %s MB", formatMB(minMB), formatMB(maxMB)))
}

func (r *Router) scheduleCommand(ctx context.Context, req Request, args string, reply Replier) error {
	magnet, when := splitCommand(args)
	when = strings.Trim(when, `"'`)
	if magnet == "" || when == "" {
		return fmt.Errorf("schedule needs a magnet link and a time: %w", apperrors.ErrMissingArgument)
	}

	job, err := r.deps.Scheduler.Schedule(req.UserID, magnet, when)
	if err != nil {
		return err
	}

	r.log.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"job_id":  job.ID,
		"fire_at": job.FireAt,
	}).Info("Download scheduled")
	return reply.Send(ctx, fmt.Sprintf("Scheduled download for %s (%s)",
		job.FireAt.Format(scheduler.TimeLayout), humanize.Time(job.FireAt)))
}

func (r *Router) statsCommand(ctx context.Context, _ Request, _ string, reply Replier) error {
	stats, err := r.deps.Repo.Stats(ctx)
	if err != nil {
		return err
	}
	return reply.Send(ctx, fmt.Sprintf("Total searches: %d\nTotal added torrents: %d\nPending scheduled downloads: %d",
		stats.Searches, stats.Additions, r.deps.Scheduler.Pending()))
}

func (r *Router) helpCommand(ctx context.Context, _ Request, _ string, reply Replier) error {
	p := r.Prefix()
	lines := []string{
		"Torrent Bot Commands",
		p + "search <query> - Search for torrents",
		p + "add <magnet> - Add a torrent by magnet link",
		p + "recent_searches - Show recent searches",
		p + "recent_additions - Show recent added torrents",
		p + "setprefix <prefix> - Set a custom command prefix",
		p + "setfilter <min_size> <max_size> - Set file size filter in MB",
		p + "schedule <magnet> <time> - Schedule a torrent download (format: YYYY-MM-DD HH:MM:SS)",
		p + "stats - Show bot statistics",
		p + "test_qbittorrent - Check the connection to qBittorrent",
		p + "help_command - Show this help message",
	}
	return reply.Send(ctx, strings.Join(lines, "\n"))
}

func (r *Router) testQBittorrentCommand(ctx context.Context, _ Request, _ string, reply Replier) error {
	ok, err := r.deps.Downloader.Authenticate(ctx)
	if err != nil {
		r.log.WithError(err).Warn("qBittorrent login request failed")
		return reply.Send(ctx, "Error connecting to qBittorrent WebUI.")
	}
	if !ok {
		return reply.Send(ctx, "Failed to log in to qBittorrent WebUI.")
	}

	outcome, err := r.deps.Downloader.Info(ctx)
	if err != nil {
		r.log.WithError(err).Warn("qBittorrent info request failed")
		return reply.Send(ctx, "Error connecting to qBittorrent WebUI.")
	}
	if !outcome.Success {
		return reply.Send(ctx, fmt.Sprintf("Failed to connect to qBittorrent WebUI. Status code: %d", outcome.StatusCode))
	}
	return reply.Send(ctx, "Successfully connected to qBittorrent WebUI.")
}

// magnetTitle returns the display name carried in a magnet's dn parameter.
func magnetTitle(magnet string) string {
	u, err := url.Parse(magnet)
	if err != nil {
		return domain.Placeholder
	}
	if dn := strings.TrimSpace(u.Query().Get("dn")); dn != "" {
		return dn
	}
	return domain.Placeholder
}

// displaySize normalises an index size for display, keeping unreadable values as-is.
func displaySize(size string) string {
	bytes, err := scraper.ParseSize(size)
	if err != nil || bytes < 0 {
		return size
	}
	return humanize.IBytes(uint64(bytes))
}

func parseMB(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, apperrors.Validationf("size %q is not a number", s)
	}
	if v < 0 {
		return 0, apperrors.Validationf("size %q is negative", s)
	}
	return v, nil
}

func formatMB(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
