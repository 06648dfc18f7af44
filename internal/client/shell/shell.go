// Package shell is the interactive Realtivo client: it reads commands,
// drives the session, backend client and lead list view, and prints the
// results as text.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"go.uber.org/zap"

	"github.com/atinyakov/realtivo/internal/access"
	"github.com/atinyakov/realtivo/internal/client/api"
	"github.com/atinyakov/realtivo/internal/client/leadlist"
	"github.com/atinyakov/realtivo/internal/client/session"
	"github.com/atinyakov/realtivo/internal/models"
	"github.com/atinyakov/realtivo/internal/validate"
)

const prompt = "realtivo> "

// Backend is the subset of the api client the shell uses.
type Backend interface {
	FetchLeads(ctx context.Context) ([]models.Lead, error)
	GetLead(ctx context.Context, id string) (*models.Lead, error)
	CreateLead(ctx context.Context, in models.LeadInput) (*models.Lead, error)
	UpdateLead(ctx context.Context, id string, in models.LeadInput) (*models.Lead, error)
	DeleteLead(ctx context.Context, id string) error
	ListNotes(ctx context.Context, leadID string) ([]models.Note, error)
	AddNote(ctx context.Context, leadID, content string) (*models.Note, error)
	DeleteNote(ctx context.Context, leadID, noteID string) error
	ListTags(ctx context.Context, leadID string) ([]models.Tag, error)
	ListAllTags(ctx context.Context) ([]models.Tag, error)
	AddTag(ctx context.Context, leadID string, ref api.TagRef) (*models.Tag, error)
	RemoveTag(ctx context.Context, leadID, tagID string) error
	Login(ctx context.Context, email, password string) (*api.LoginResult, error)
	Signup(ctx context.Context, name, email, password string) error
}

// Session is the subset of session.Session the shell uses.
type Session interface {
	Login(token string, profile *models.User) error
	Logout()
	IsAuthenticated() bool
	User() *models.User
}

// Shell is one interactive client.
type Shell struct {
	in      LineInput
	out     io.Writer
	backend Backend
	session Session
	loader  *leadlist.Loader
	state   *leadlist.State
	now     func() time.Time
	log     *zap.Logger
}

// Config bundles the Shell dependencies.
type Config struct {
	In      LineInput
	Out     io.Writer
	Backend Backend
	Session Session
	Logger  *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a Shell.
func New(cfg Config) *Shell {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Shell{
		in:      cfg.In,
		out:     cfg.Out,
		backend: cfg.Backend,
		session: cfg.Session,
		loader:  leadlist.NewLoader(cfg.Backend, cfg.Logger),
		state:   leadlist.NewState(),
		now:     cfg.Now,
		log:     cfg.Logger,
	}
}

// LoggedOut drops cached data after the session ends. Wire it to the
// session's logout callback.
func (s *Shell) LoggedOut() {
	s.loader.Clear()
	s.state.Reset()
	fmt.Fprintln(s.out, noticeStyle.Render("Logged out. Use 'login' to sign in again."))
}

var commandHelp = []string{
	"login | signup | logout | whoami",
	"refresh | list | stats",
	"search [text] | status <Hot|Warm|Cold|Closed|all> | followup <all|overdue|today|thisWeek|none>",
	"page <n> | next | prev | reset",
	"get <id> | add | edit <id> | delete <id>",
	"notes <id> | note <id> <text> | rmnote <id> <noteId>",
	"tags <id> | alltags | tag <id> <name> | untag <id> <tagId>",
	"help | exit",
}

// Run reads and executes commands until exit, EOF or interrupt.
func (s *Shell) Run(ctx context.Context) error {
	if s.session.IsAuthenticated() {
		s.greet()
		s.refresh(ctx)
	} else {
		fmt.Fprintln(s.out, "Welcome to Realtivo. Use 'login' or 'signup' to get started, 'help' for commands.")
	}

	for {
		line, err := s.in.ReadLine(prompt)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
				return nil
			}
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(s.out, "Bye")
			return nil
		}
		s.Exec(ctx, args)
	}
}

// Exec runs one parsed command.
func (s *Shell) Exec(ctx context.Context, args []string) {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help":
		fmt.Fprintln(s.out, "Available commands:")
		for _, h := range commandHelp {
			fmt.Fprintln(s.out, "  "+h)
		}
		return
	case "login":
		s.login(ctx)
		return
	case "signup":
		s.signup(ctx)
		return
	}

	if !s.session.IsAuthenticated() {
		fmt.Fprintln(s.out, "Please login first.")
		return
	}

	switch cmd {
	case "logout":
		s.session.Logout()
	case "whoami":
		s.greet()
	case "refresh":
		s.refresh(ctx)
	case "list", "ls":
		s.list()
	case "stats":
		renderStats(s.out, s.loader.Leads(), s.now())
	case "search":
		s.state.SetSearch(strings.Join(rest, " "))
		s.list()
	case "status":
		if !s.need(rest, 1, "status <Hot|Warm|Cold|Closed|all>") {
			return
		}
		st, err := leadlist.ParseStatusFilter(rest[0])
		if err != nil {
			s.fail(err)
			return
		}
		s.state.SetStatus(st)
		s.list()
	case "followup":
		if !s.need(rest, 1, "followup <all|overdue|today|thisWeek|none>") {
			return
		}
		f, err := leadlist.ParseFollowUpFilter(rest[0])
		if err != nil {
			s.fail(err)
			return
		}
		s.state.SetFollowUp(f)
		s.list()
	case "page":
		if !s.need(rest, 1, "page <n>") {
			return
		}
		n, err := strconv.Atoi(rest[0])
		if err != nil {
			s.fail(fmt.Errorf("invalid page %q", rest[0]))
			return
		}
		s.state.SetPage(n)
		s.list()
	case "next":
		if !s.state.NextPage(s.state.View(s.loader.Leads(), s.now()).TotalPages) {
			fmt.Fprintln(s.out, "Already on the last page.")
			return
		}
		s.list()
	case "prev":
		if !s.state.PrevPage() {
			fmt.Fprintln(s.out, "Already on the first page.")
			return
		}
		s.list()
	case "reset":
		s.state.Reset()
		s.list()
	case "get":
		if s.need(rest, 1, "get <id>") {
			s.get(ctx, rest[0])
		}
	case "add":
		if s.can(access.ManageLeads) {
			s.add(ctx)
		}
	case "edit":
		if s.need(rest, 1, "edit <id>") && s.can(access.ManageLeads) {
			s.edit(ctx, rest[0])
		}
	case "delete", "rm":
		if s.need(rest, 1, "delete <id>") && s.can(access.ManageLeads) {
			s.delete(ctx, rest[0])
		}
	case "notes":
		if s.need(rest, 1, "notes <id>") {
			notes, err := s.backend.ListNotes(ctx, rest[0])
			if err != nil {
				s.fail(err)
				return
			}
			renderNotes(s.out, notes, s.now())
		}
	case "note":
		if s.need(rest, 2, "note <id> <text>") && s.can(access.AnnotateLeads) {
			note, err := s.backend.AddNote(ctx, rest[0], strings.Join(rest[1:], " "))
			if err != nil {
				s.fail(err)
				return
			}
			fmt.Fprintf(s.out, "Note %s added\n", note.ID)
		}
	case "rmnote":
		if s.need(rest, 2, "rmnote <id> <noteId>") && s.can(access.AnnotateLeads) {
			if err := s.backend.DeleteNote(ctx, rest[0], rest[1]); err != nil {
				s.fail(err)
				return
			}
			fmt.Fprintln(s.out, "Note removed")
		}
	case "tags":
		if s.need(rest, 1, "tags <id>") {
			tags, err := s.backend.ListTags(ctx, rest[0])
			if err != nil {
				s.fail(err)
				return
			}
			renderTags(s.out, tags)
		}
	case "alltags":
		tags, err := s.backend.ListAllTags(ctx)
		if err != nil {
			s.fail(err)
			return
		}
		renderTags(s.out, tags)
	case "tag":
		if s.need(rest, 2, "tag <id> <name>") && s.can(access.AnnotateLeads) {
			tag, err := s.backend.AddTag(ctx, rest[0], api.TagRef{Name: strings.Join(rest[1:], " ")})
			if err != nil {
				s.fail(err)
				return
			}
			fmt.Fprintf(s.out, "Tag %s added\n", tag.Name)
		}
	case "untag":
		if s.need(rest, 2, "untag <id> <tagId>") && s.can(access.AnnotateLeads) {
			if err := s.backend.RemoveTag(ctx, rest[0], rest[1]); err != nil {
				s.fail(err)
				return
			}
			fmt.Fprintln(s.out, "Tag removed")
		}
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
}

func (s *Shell) need(args []string, n int, usage string) bool {
	if len(args) < n {
		fmt.Fprintln(s.out, "Usage: "+usage)
		return false
	}
	return true
}

// can gates mutations for display; the backend enforces the same rule.
func (s *Shell) can(c access.Capability) bool {
	if access.CanUser(s.session.User(), c) {
		return true
	}
	fmt.Fprintln(s.out, noticeStyle.Render("Read-only access: your role cannot perform this action."))
	return false
}

// fail reports err. A 401 ends the session.
func (s *Shell) fail(err error) {
	var verrs validate.Errors
	switch {
	case api.IsUnauthorized(err):
		s.log.Info("backend rejected token, logging out", zap.Error(err))
		fmt.Fprintln(s.out, errorStyle.Render("Your session has expired."))
		s.session.Logout()
	case errors.As(err, &verrs):
		fmt.Fprintln(s.out, errorStyle.Render("Please fix the following:"))
		for _, line := range strings.Split(verrs.Error(), "; ") {
			fmt.Fprintln(s.out, "  "+line)
		}
	default:
		s.log.Warn("command failed", zap.Error(err))
		fmt.Fprintln(s.out, errorStyle.Render("error: "+err.Error()))
	}
}

func (s *Shell) greet() {
	u := s.session.User()
	if u == nil {
		return
	}
	name := u.Name
	if name == "" {
		name = u.Email
	}
	fmt.Fprintf(s.out, "Signed in as %s (%s)\n", name, u.Role)
	if !access.CanUser(u, access.ManageLeads) {
		fmt.Fprintln(s.out, noticeStyle.Render("You have read-only access to leads."))
	}
}

func (s *Shell) refresh(ctx context.Context) {
	leads, err := s.loader.Load(ctx)
	if errors.Is(err, leadlist.ErrStale) {
		return
	}
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Loaded %d leads\n", len(leads))
}

func (s *Shell) list() {
	res := s.state.View(s.loader.Leads(), s.now())
	renderFilter(s.out, s.state.Filter())
	renderTable(s.out, res, s.now())
}

func (s *Shell) login(ctx context.Context) {
	email, err := s.in.ReadLine("Email: ")
	if err != nil {
		return
	}
	password, err := s.in.ReadPassword("Password: ")
	if err != nil {
		return
	}
	email = strings.TrimSpace(email)
	if err := validate.Login(email, password); err != nil {
		s.fail(err)
		return
	}
	res, err := s.backend.Login(ctx, email, password)
	if err != nil {
		if api.IsUnauthorized(err) {
			fmt.Fprintln(s.out, errorStyle.Render("Invalid email or password."))
			return
		}
		s.fail(err)
		return
	}
	if err := s.session.Login(res.Token, res.User); err != nil {
		if errors.Is(err, session.ErrInvalidToken) {
			fmt.Fprintln(s.out, errorStyle.Render("Login failed: the server returned an unusable token."))
			return
		}
		fmt.Fprintln(s.out, errorStyle.Render("Login failed: could not save the session: "+err.Error()))
		return
	}
	s.greet()
	s.refresh(ctx)
}

func (s *Shell) signup(ctx context.Context) {
	name, err := s.in.ReadLine("Name: ")
	if err != nil {
		return
	}
	email, err := s.in.ReadLine("Email: ")
	if err != nil {
		return
	}
	password, err := s.in.ReadPassword("Password: ")
	if err != nil {
		return
	}
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if err := validate.Signup(name, email, password); err != nil {
		s.fail(err)
		return
	}
	if err := s.backend.Signup(ctx, name, email, password); err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, "Account created. Use 'login' to sign in.")
}

func (s *Shell) get(ctx context.Context, id string) {
	lead, err := s.backend.GetLead(ctx, id)
	if err != nil {
		if api.IsNotFound(err) {
			fmt.Fprintln(s.out, "Lead not found")
			return
		}
		s.fail(err)
		return
	}
	notes, err := s.backend.ListNotes(ctx, id)
	if err != nil {
		s.fail(err)
		return
	}
	tags, err := s.backend.ListTags(ctx, id)
	if err != nil {
		s.fail(err)
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	renderLead(s.out, *lead, notes, tags, s.now())
}

func (s *Shell) add(ctx context.Context) {
	in, err := s.promptLead(nil)
	if err != nil {
		return
	}
	if in.Status == "" {
		in.Status = models.DefaultStatus
	}
	if err := validate.Lead(in); err != nil {
		s.fail(err)
		return
	}
	lead, err := s.backend.CreateLead(ctx, in)
	if err != nil {
		s.fail(err)
		return
	}
	s.loader.Upsert(*lead)
	fmt.Fprintf(s.out, "Lead %s created\n", lead.ID)
}

func (s *Shell) edit(ctx context.Context, id string) {
	current, ok := s.loader.Find(id)
	if !ok {
		lead, err := s.backend.GetLead(ctx, id)
		if err != nil {
			if api.IsNotFound(err) {
				fmt.Fprintln(s.out, "Lead not found")
				return
			}
			s.fail(err)
			return
		}
		current = *lead
	}
	in, err := s.promptLead(&current)
	if err != nil {
		return
	}
	if err := validate.Lead(in); err != nil {
		s.fail(err)
		return
	}
	lead, err := s.backend.UpdateLead(ctx, id, in)
	if err != nil {
		s.fail(err)
		return
	}
	s.loader.Upsert(*lead)
	fmt.Fprintln(s.out, "Lead updated")
}

func (s *Shell) delete(ctx context.Context, id string) {
	if !s.confirm("Are you sure you want to delete this lead?") {
		fmt.Fprintln(s.out, "Cancelled")
		return
	}
	if err := s.backend.DeleteLead(ctx, id); err != nil {
		if api.IsNotFound(err) {
			fmt.Fprintln(s.out, "Lead not found")
			return
		}
		s.fail(err)
		return
	}
	s.loader.Remove(id)
	fmt.Fprintln(s.out, "Lead deleted")
}
