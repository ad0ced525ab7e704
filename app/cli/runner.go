// Package cli is the terminal client. It talks to the server's REST API and
// manages todos through a todostore.Store.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"nestodo/app/models"
	"nestodo/app/render"
	"nestodo/app/todostore"
	"nestodo/app/tree"
)

// DefaultBaseURL is used when NESTODO_URL is unset.
const DefaultBaseURL = "http://localhost:8080"

// idWidth is how many id characters ls prints and commands accept.
const idWidth = 8

// Options tune the runner.
type Options struct {
	BaseURL string
	Creds   *CredentialStore
	Plain   bool // no ANSI styling
	In      io.Reader
	Out     io.Writer
	Err     io.Writer
}

func (o Options) textOptions() render.TextOptions {
	return render.TextOptions{IDWidth: idWidth, Plain: o.Plain}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp(opt.Err)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Out)
		return 0
	case "signup":
		return doSignup(ctx, a, opt)
	case "login":
		return doLogin(ctx, a, opt)
	case "logout":
		return doLogout(ctx, opt)
	case "whoami":
		return doWhoami(ctx, opt)
	case "ls":
		return doList(ctx, opt)
	case "add":
		return doAdd(ctx, a, opt)
	case "done", "undo":
		if len(a) != 1 {
			fail(opt, "usage: todo "+cmd+" <id>")
			return 2
		}
		return doToggle(ctx, a[0], cmd == "done", opt)
	case "rm":
		if len(a) != 1 {
			fail(opt, "usage: todo rm <id>")
			return 2
		}
		return doRemove(ctx, a[0], opt)
	case "tui":
		return doTUI(ctx, opt)
	}

	fail(opt, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Err)
	PrintHelp(opt.Err)
	return 2
}

// PrintHelp writes the usage text.
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - nested task lists from the terminal

Usage:
  todo [-plain] <subcommand> [args]

Subcommands:
  signup -email E [-name N] [-password P]   Create an account and log in
  login -email E [-password P]              Log in (password read from stdin if omitted)
  logout                                    Log out and forget the session
  whoami                                    Show the logged in user
  ls                                        Show the task tree
  add [-parent ID] <title...>               Add a task, or a sub-task under ID
  done <id> / undo <id>                     Mark a task complete / incomplete
  rm <id>                                   Delete a task and all its sub-tasks
  tui                                       Interactive tree view

Ids may be abbreviated to any unique prefix shown by ls.

Environment:
  NESTODO_URL     server address (default http://localhost:8080)
  NESTODO_TOKEN   session token, overrides ~/.nestodo/credentials.json
`)
}

// -------------- account commands ----------------

type accountFlags struct {
	email, password, name string
}

func parseAccountFlags(name string, args []string, withName bool, opt Options) (accountFlags, bool) {
	var f accountFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(opt.Err)
	fs.StringVar(&f.email, "email", "", "account email")
	fs.StringVar(&f.password, "password", "", "password (read from stdin when omitted)")
	if withName {
		fs.StringVar(&f.name, "name", "", "display name")
	}
	if err := fs.Parse(args); err != nil {
		return f, false
	}
	if f.email == "" {
		fail(opt, "usage: todo "+name+" -email <email>")
		return f, false
	}
	if f.password == "" && opt.In != nil {
		fmt.Fprint(opt.Err, "Password: ")
		line, _ := bufio.NewReader(opt.In).ReadString('\n')
		f.password = strings.TrimRight(line, "\r\n")
	}
	return f, true
}

func doSignup(ctx context.Context, args []string, opt Options) int {
	f, valid := parseAccountFlags("signup", args, true, opt)
	if !valid {
		return 2
	}
	auth := todostore.NewAuthClient(opt.BaseURL, "")
	if _, err := auth.Signup(ctx, f.email, f.password, f.name); err != nil {
		return report(opt, "signup", err)
	}
	return login(ctx, f, opt, "signed up as ")
}

func doLogin(ctx context.Context, args []string, opt Options) int {
	f, valid := parseAccountFlags("login", args, false, opt)
	if !valid {
		return 2
	}
	return login(ctx, f, opt, "logged in as ")
}

func login(ctx context.Context, f accountFlags, opt Options, prefix string) int {
	auth := todostore.NewAuthClient(opt.BaseURL, "")
	session, err := auth.Login(ctx, f.email, f.password)
	if err != nil {
		return report(opt, "login", err)
	}
	if err := opt.Creds.Save(session.Token, session.User.Email, session.ExpiresAt); err != nil {
		fail(opt, "save credentials: "+err.Error())
		return 1
	}
	ok(opt, prefix+session.User.Email)
	return 0
}

func doLogout(ctx context.Context, opt Options) int {
	creds, err := opt.Creds.Load()
	if err != nil {
		fail(opt, err.Error())
		return 1
	}
	if creds != nil {
		err := todostore.NewAuthClient(opt.BaseURL, creds.Token).Logout(ctx)
		if err != nil && !errors.Is(err, todostore.ErrUnauthorized) {
			return report(opt, "logout", err)
		}
	}
	if err := opt.Creds.Delete(); err != nil {
		fail(opt, err.Error())
		return 1
	}
	ok(opt, "logged out")
	return 0
}

func doWhoami(ctx context.Context, opt Options) int {
	_, user, code := session(ctx, opt)
	if code != 0 {
		return code
	}
	if user.Name != "" {
		fmt.Fprintf(opt.Out, "%s <%s>\n", user.Name, user.Email)
	} else {
		fmt.Fprintln(opt.Out, user.Email)
	}
	return 0
}

// session resolves the saved token to its user.
func session(ctx context.Context, opt Options) (string, models.User, int) {
	creds, err := opt.Creds.Load()
	if err != nil {
		fail(opt, err.Error())
		return "", models.User{}, 1
	}
	if creds == nil {
		fail(opt, "not logged in: run `todo login -email <email>`")
		return "", models.User{}, 1
	}
	user, err := todostore.NewAuthClient(opt.BaseURL, creds.Token).Current(ctx)
	if err != nil {
		return "", models.User{}, report(opt, "session", err)
	}
	return creds.Token, user, 0
}

// openStore returns a loaded store for the logged in user.
func openStore(ctx context.Context, opt Options) (*todostore.Store, int) {
	token, user, code := session(ctx, opt)
	if code != 0 {
		return nil, code
	}
	store := todostore.New(todostore.NewHTTPBackend(opt.BaseURL, token), user)
	if err := store.Load(ctx); err != nil {
		return nil, report(opt, "load", err)
	}
	return store, 0
}

// -------------- todo commands ----------------

func doList(ctx context.Context, opt Options) int {
	store, code := openStore(ctx, opt)
	if code != 0 {
		return code
	}
	todos := store.Todos()
	fmt.Fprintln(opt.Out, panel(opt.Plain, []string{
		render.Header(todos, opt.textOptions()),
		"",
		render.Text(todos, opt.textOptions()),
	}))
	return 0
}

func doAdd(ctx context.Context, args []string, opt Options) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(opt.Err)
	parent := fs.String("parent", "", "id of the parent task")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	title := strings.Join(fs.Args(), " ")

	store, code := openStore(ctx, opt)
	if code != 0 {
		return code
	}
	var parentID *string
	if *parent != "" {
		id, err := resolveID(store.Todos(), *parent)
		if err != nil {
			return report(opt, "add", err)
		}
		parentID = &id
	}
	todo, err := store.Add(ctx, parentID, title)
	if err != nil {
		return report(opt, "add", err)
	}
	ok(opt, "added #"+render.ShortID(todo.ID, idWidth))
	return 0
}

func doToggle(ctx context.Context, prefix string, completed bool, opt Options) int {
	store, code := openStore(ctx, opt)
	if code != 0 {
		return code
	}
	id, err := resolveID(store.Todos(), prefix)
	if err != nil {
		return report(opt, "toggle", err)
	}
	if err := store.Toggle(ctx, id, completed); err != nil {
		return report(opt, "toggle", err)
	}
	if completed {
		ok(opt, "completed #"+render.ShortID(id, idWidth))
	} else {
		ok(opt, "reopened #"+render.ShortID(id, idWidth))
	}
	return 0
}

func doRemove(ctx context.Context, prefix string, opt Options) int {
	store, code := openStore(ctx, opt)
	if code != 0 {
		return code
	}
	todos := store.Todos()
	id, err := resolveID(todos, prefix)
	if err != nil {
		return report(opt, "rm", err)
	}
	n := len(tree.DeletionSetFor(todos, id))
	if err := store.Delete(ctx, id); err != nil {
		return report(opt, "rm", err)
	}
	if n == 1 {
		ok(opt, "removed 1 task")
	} else {
		ok(opt, fmt.Sprintf("removed %d tasks", n))
	}
	return 0
}

func doTUI(ctx context.Context, opt Options) int {
	store, code := openStore(ctx, opt)
	if code != 0 {
		return code
	}
	if err := runTUI(ctx, store, opt); err != nil {
		fail(opt, "tui: "+err.Error())
		return 1
	}
	return 0
}

// -------------- helpers ----------------

// resolveID finds the todo whose id equals or uniquely starts with prefix.
func resolveID(todos []models.Todo, prefix string) (string, error) {
	prefix = strings.TrimPrefix(strings.TrimSpace(prefix), "#")
	if prefix == "" {
		return "", todostore.ErrNotFound
	}
	for _, t := range todos {
		if t.ID == prefix {
			return t.ID, nil
		}
	}
	var match string
	for _, t := range todos {
		if strings.HasPrefix(t.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("id %q is ambiguous", prefix)
			}
			match = t.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", todostore.ErrNotFound, prefix)
	}
	return match, nil
}

// report prints err and returns its exit code.
func report(opt Options, op string, err error) int {
	var (
		ve   *todostore.ValidationError
		cerr *todostore.CascadeError
	)
	switch {
	case errors.As(err, &ve):
		fail(opt, op+": "+ve.Message)
		return 2
	case errors.Is(err, todostore.ErrUnauthorized):
		fail(opt, "session expired: run `todo login -email <email>`")
	case errors.As(err, &cerr):
		fail(opt, op+": "+cerr.Error())
		fmt.Fprintln(opt.Err, muted(opt.Plain, "Hint: run `todo ls` to see what is left"))
	default:
		fail(opt, op+": "+err.Error())
	}
	return 1
}
