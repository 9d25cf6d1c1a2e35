package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/atinyakov/GophTodo/internal/client/api"
	"github.com/atinyakov/GophTodo/internal/client/prompt"
	"github.com/atinyakov/GophTodo/internal/client/session"
	"github.com/atinyakov/GophTodo/internal/client/storage"
	"github.com/atinyakov/GophTodo/internal/client/tasks"
	"github.com/atinyakov/GophTodo/internal/models"
)

const helpText = `Available commands:
  register                     create an account and sign in
  login                        sign in
  logout                       sign out
  whoami                       show the signed-in user
  list [all|pending|completed] show tasks
  add                          create a task (kept as a draft while signed out)
  get <id>                     show one task
  edit <id>                    change title or description
  done <id> | undo <id>        mark completed or pending
  toggle <id>                  flip completion
  delete <id>                  delete a task
  drafts [submit|clear]        show, submit or drop drafts
  exit                         quit`

// shell runs the interactive command loop.
type shell struct {
	in      *prompt.Prompter
	out     io.Writer
	session *session.Manager
	store   *tasks.Store
	pending *storage.PendingBuffer
	log     *zap.Logger
}

func newREPL(in *prompt.Prompter, out io.Writer, mgr *session.Manager, store *tasks.Store,
	pending *storage.PendingBuffer, log *zap.Logger) *shell {
	sh := &shell{in: in, out: out, session: mgr, store: store, pending: pending, log: log}

	mgr.OnAuthenticated(func(ctx context.Context, u models.User) {
		fmt.Fprintf(sh.out, "Signed in as %s <%s>\n", u.Name, u.Email)
		sh.submitDrafts(ctx)
		if err := store.Refresh(ctx); err != nil {
			sh.printError(err)
		}
	})
	mgr.OnChange(func(s session.State) {
		if s == session.Unauthenticated {
			store.Reset()
		}
	})
	return sh
}

// run restores the session and reads commands until exit, EOF or ctx ends.
func (sh *shell) run(ctx context.Context) {
	if err := sh.session.Init(ctx); err != nil {
		fmt.Fprintf(sh.out, "Could not verify saved session: %v\n", err)
	}
	if !sh.session.IsAuthenticated() {
		fmt.Fprintln(sh.out, "Not signed in. Type 'login' or 'register'; 'help' lists commands.")
	}

	for ctx.Err() == nil {
		line, ok := sh.in.Line("todo> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if !sh.exec(ctx, args) {
			return
		}
	}
}

// exec runs one command and reports whether the loop should continue.
func (sh *shell) exec(ctx context.Context, args []string) bool {
	switch cmd := args[0]; cmd {
	case "help":
		fmt.Fprintln(sh.out, helpText)
	case "register":
		req := sh.in.Register()
		if _, err := sh.session.Register(ctx, req.Name, req.Email, req.Password); err != nil {
			sh.report(err, false)
		}
	case "login":
		req := sh.in.Login()
		if _, err := sh.session.Login(ctx, req.Email, req.Password); err != nil {
			sh.report(err, false)
		}
	case "logout":
		sh.session.Logout()
		fmt.Fprintln(sh.out, "Signed out")
	case "whoami":
		if u, ok := sh.session.User(); ok {
			fmt.Fprintf(sh.out, "%s <%s> (id %s)\n", u.Name, u.Email, u.ID)
		} else {
			fmt.Fprintln(sh.out, "Not signed in")
		}
	case "list":
		sh.list(ctx, args[1:])
	case "add":
		sh.add(ctx)
	case "get", "edit", "done", "undo", "toggle", "delete":
		if len(args) < 2 {
			fmt.Fprintf(sh.out, "Usage: %s <id>\n", cmd)
			return true
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || id <= 0 {
			fmt.Fprintf(sh.out, "Invalid task id %q\n", args[1])
			return true
		}
		if !sh.requireAuth() {
			return true
		}
		sh.byID(ctx, cmd, id)
	case "drafts":
		sh.drafts(ctx, args[1:])
	case "exit", "quit":
		fmt.Fprintln(sh.out, "Bye")
		return false
	default:
		fmt.Fprintln(sh.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return true
}

func (sh *shell) requireAuth() bool {
	if sh.session.IsAuthenticated() {
		return true
	}
	fmt.Fprintln(sh.out, "Please log in first")
	return false
}

func (sh *shell) list(ctx context.Context, args []string) {
	if !sh.requireAuth() {
		return
	}
	filter := sh.store.Filter()
	if len(args) > 0 {
		f, ok := models.ParseStatusFilter(args[0])
		if !ok {
			fmt.Fprintln(sh.out, "Usage: list [all|pending|completed]")
			return
		}
		filter = f
	}
	if err := sh.store.SetFilter(ctx, filter); err != nil {
		sh.printError(err)
		return
	}

	list := sh.store.Tasks()
	if len(list) == 0 {
		fmt.Fprintln(sh.out, "No tasks")
		return
	}
	for _, t := range list {
		sh.printTask(t)
	}
}

func (sh *shell) add(ctx context.Context) {
	title, description := sh.in.Task()

	if !sh.session.IsAuthenticated() {
		if _, err := models.NewTaskCreate(title, description); err != nil {
			sh.printError(err)
			return
		}
		if _, err := sh.pending.Add(strings.TrimSpace(title), strings.TrimSpace(description)); err != nil {
			sh.printError(err)
			return
		}
		fmt.Fprintln(sh.out, "Saved as a draft; it will be created when you sign in")
		return
	}

	t, err := sh.store.Create(ctx, title, description)
	if err != nil {
		sh.printError(err)
		return
	}
	fmt.Fprintf(sh.out, "Task %d created\n", t.ID)
}

func (sh *shell) byID(ctx context.Context, cmd string, id int64) {
	var (
		t   *models.Task
		err error
	)
	switch cmd {
	case "get":
		t, err = sh.store.Get(ctx, id)
	case "edit":
		upd := sh.in.EditTask()
		if upd.Title == nil && upd.Description == nil {
			fmt.Fprintln(sh.out, "Nothing to change")
			return
		}
		t, err = sh.store.Update(ctx, id, upd)
	case "done":
		t, err = sh.store.Toggle(ctx, id, models.BoolPtr(true))
	case "undo":
		t, err = sh.store.Toggle(ctx, id, models.BoolPtr(false))
	case "toggle":
		t, err = sh.store.Toggle(ctx, id, nil)
	case "delete":
		if err = sh.store.Delete(ctx, id); err == nil {
			fmt.Fprintf(sh.out, "Task %d deleted\n", id)
		}
	}
	if err != nil {
		sh.printError(err)
		return
	}
	if t != nil {
		sh.printTask(*t)
	}
}

func (sh *shell) drafts(ctx context.Context, args []string) {
	sub := ""
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "":
		items := sh.pending.List()
		if len(items) == 0 {
			fmt.Fprintln(sh.out, "No drafts")
			return
		}
		for _, p := range items {
			fmt.Fprintf(sh.out, "- %s\n", p.Title)
		}
	case "submit":
		if sh.requireAuth() {
			sh.submitDrafts(ctx)
		}
	case "clear":
		if err := sh.pending.Clear(); err != nil {
			sh.printError(err)
			return
		}
		fmt.Fprintln(sh.out, "Drafts cleared")
	default:
		fmt.Fprintln(sh.out, "Usage: drafts [submit|clear]")
	}
}

func (sh *shell) submitDrafts(ctx context.Context) {
	res := sh.store.SubmitPending(ctx, sh.pending)
	if len(res.Submitted) > 0 {
		fmt.Fprintf(sh.out, "Created %d drafted task(s)\n", len(res.Submitted))
	}
	if res.Err != nil {
		fmt.Fprintf(sh.out, "%d draft(s) kept for later: %v\n", len(res.Failed), res.Err)
	}
}

func (sh *shell) printTask(t models.Task) {
	mark := " "
	if t.Completed {
		mark = "x"
	}
	fmt.Fprintf(sh.out, "[%s] %d  %s\n", mark, t.ID, t.Title)
	if t.Description != nil && *t.Description != "" {
		fmt.Fprintf(sh.out, "       %s\n", *t.Description)
	}
}

// printError turns client errors into one line for the user.
func (sh *shell) printError(err error) {
	sh.report(err, true)
}

// report prints err. With signInHint set, a 401 that signed the user out
// is followed by a hint to log in again.
func (sh *shell) report(err error, signInHint bool) {
	var (
		ve     *models.ValidationError
		apiErr *api.Error
		netErr *api.NetworkError
	)
	switch {
	case errors.As(err, &ve):
		fmt.Fprintln(sh.out, ve.Message)
	case api.IsForbidden(err):
		fmt.Fprintln(sh.out, "Access denied: this task belongs to another user")
	case errors.As(err, &apiErr):
		fmt.Fprintln(sh.out, apiErr.Detail)
		if signInHint && api.IsUnauthorized(err) && !sh.session.IsAuthenticated() {
			fmt.Fprintln(sh.out, "You are signed out. Type 'login' to continue.")
		}
	case errors.As(err, &netErr):
		fmt.Fprintln(sh.out, "Server unreachable, try again later")
		sh.log.Debug("request failed", zap.Error(err))
	default:
		fmt.Fprintf(sh.out, "Error: %v\n", err)
	}
}
