// Command rpmsack is a small demonstration CLI over the Sack/Query/Goal
// engine, dispatching to one of a handful of subcommands exactly the way
// the teacher's cmd/dep/main.go does: a command interface with
// Name/Args/ShortHelp/Register/Run, looked up by its first argument.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/rpmsack/rpmsack/internal/goal"
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/query"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/sack"
	"github.com/rpmsack/rpmsack/internal/selector"
)

type command interface {
	Name() string
	Args() string
	ShortHelp() string
	Register(*flag.FlagSet)
	Run(env *env, args []string) error
}

// env bundles the dependencies every subcommand needs, built once in main
// and threaded through, the same role dep.Ctx plays for cmd/dep's
// commands.
type env struct {
	out, err *log.Logger
	sack     *sack.Sack
}

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	outLog := log.New(stdout, "", 0)
	errLog := log.New(stderr, "", 0)

	commands := []command{
		&listCommand{},
		&installCommand{},
		&eraseCommand{},
		&upgradeAllCommand{},
	}

	usage := func() {
		fmt.Fprintln(stderr, "usage: rpmsack [-repo FILE] <command> [args]")
		fmt.Fprintln(stderr, "commands:")
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-12s %s\n", c.Name(), c.ShortHelp())
		}
	}

	if len(args) < 2 {
		usage()
		return 1
	}

	top := flag.NewFlagSet("rpmsack", flag.ContinueOnError)
	repoPath := top.String("repo", "", "path to a JSON repo fixture to load before running the command")
	top.SetOutput(stderr)
	if err := top.Parse(args[1:]); err != nil {
		return 1
	}
	rest := top.Args()
	if len(rest) < 1 {
		usage()
		return 1
	}

	name := rest[0]
	var cmd command
	for _, c := range commands {
		if c.Name() == name {
			cmd = c
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "rpmsack: unknown command %q\n", name)
		usage()
		return 1
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	cmd.Register(fs)
	if err := fs.Parse(rest[1:]); err != nil {
		return 1
	}

	sk, err := loadSack(*repoPath)
	if err != nil {
		errLog.Printf("rpmsack: %v", err)
		return 1
	}
	e := &env{out: outLog, err: errLog, sack: sk}

	if err := cmd.Run(e, fs.Args()); err != nil {
		errLog.Printf("rpmsack: %s: %v", name, err)
		return 1
	}
	return 0
}

// fixturePkg is the on-disk shape of one entry in a -repo JSON file, kept
// deliberately flat: real metadata parsing (rpmdb, repo XML, solv files)
// is the external collaborator spec §1 assigns to the host, and this CLI
// exists only to exercise the engine end to end.
type fixturePkg struct {
	Name     string   `json:"name"`
	Evr      string   `json:"evr"`
	Arch     string   `json:"arch"`
	Repo     string   `json:"repo"`
	Requires []string `json:"requires"`
}

func loadSack(repoPath string) (*sack.Sack, error) {
	sk, err := sack.New("", "x86_64", "/", sack.Options{})
	if err != nil {
		return nil, err
	}
	if repoPath == "" {
		return sk, nil
	}

	f, err := os.Open(repoPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var fixtures []fixturePkg
	if err := json.NewDecoder(f).Decode(&fixtures); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", repoPath, err)
	}

	mp, ok := sk.Pool().(*pool.MemPool)
	if !ok {
		return nil, fmt.Errorf("loadSack: sack was not built with the in-memory pool")
	}
	for _, fp := range fixtures {
		var reqs reldep.List
		for _, r := range fp.Requires {
			reqs = append(reqs, reldep.Reldep{Name: r})
		}
		repo := fp.Repo
		if repo == "" {
			repo = sack.SystemRepoName
		}
		epoch, version, release := reldep.SplitEVR(fp.Evr)
		mp.Add(&pool.Solvable{
			Name: fp.Name, EVR: fp.Evr, Arch: fp.Arch, RepoName: repo,
			Epoch: epoch, Version: version, Release: release,
			Requires: reqs,
			Provides: reldep.List{{Name: fp.Name, EVR: fp.Evr, Flags: reldep.EQ}},
		})
	}
	return sk, nil
}

type listCommand struct{ latest bool }

func (c *listCommand) Name() string      { return "list" }
func (c *listCommand) Args() string      { return "[-latest] [name-glob]" }
func (c *listCommand) ShortHelp() string { return "list packages known to the sack" }
func (c *listCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.latest, "latest", false, "only the latest version per name")
}
func (c *listCommand) Run(e *env, args []string) error {
	q := query.New(e.sack, 0)
	if len(args) > 0 {
		if err := q.Filter(query.NAME, reldep.GLOB, args[0]); err != nil {
			return err
		}
	}
	q.FilterLatest(c.latest)
	ids, err := q.Run()
	if err != nil {
		return err
	}
	for _, id := range ids {
		sv, ok := e.sack.Pool().Id2Solvable(id)
		if ok {
			e.out.Println(sv.NEVRA())
		}
	}
	return nil
}

type installCommand struct{}

func (c *installCommand) Name() string                  { return "install" }
func (c *installCommand) Args() string                  { return "<name>" }
func (c *installCommand) ShortHelp() string              { return "stage and run an install goal for a package name" }
func (c *installCommand) Register(fs *flag.FlagSet)      {}
func (c *installCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("install: expected exactly one package name")
	}
	g := goal.New(e.sack, nil)
	if err := g.Install(selector.New().SetName(args[0])); err != nil {
		return err
	}
	return runAndReport(e, g)
}

type eraseCommand struct{}

func (c *eraseCommand) Name() string                  { return "erase" }
func (c *eraseCommand) Args() string                  { return "<name>" }
func (c *eraseCommand) ShortHelp() string              { return "stage and run an erase goal for an installed package name" }
func (c *eraseCommand) Register(fs *flag.FlagSet)      {}
func (c *eraseCommand) Run(e *env, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("erase: expected exactly one package name")
	}
	g := goal.New(e.sack, nil)
	if err := g.Erase(selector.New().SetName(args[0]), false); err != nil {
		return err
	}
	return runAndReport(e, g)
}

type upgradeAllCommand struct{}

func (c *upgradeAllCommand) Name() string                  { return "upgrade-all" }
func (c *upgradeAllCommand) Args() string                  { return "" }
func (c *upgradeAllCommand) ShortHelp() string              { return "upgrade every installed package to its best candidate" }
func (c *upgradeAllCommand) Register(fs *flag.FlagSet)      {}
func (c *upgradeAllCommand) Run(e *env, args []string) error {
	g := goal.New(e.sack, nil)
	g.UpgradeAll()
	return runAndReport(e, g)
}

func runAndReport(e *env, g *goal.Goal) error {
	if err := g.Run(); err != nil {
		for i := 0; i < g.CountProblems(); i++ {
			msg, _ := g.DescribeProblem(i)
			e.err.Println(msg)
		}
		return err
	}
	for _, id := range g.ListInstalls() {
		printStep(e, id, "install")
	}
	for _, id := range g.ListUpgrades() {
		printStep(e, id, "upgrade")
	}
	for _, id := range g.ListErasures() {
		printStep(e, id, "erase")
	}
	return nil
}

func printStep(e *env, id pool.Id, verb string) {
	sv, ok := e.sack.Pool().Id2Solvable(id)
	if !ok {
		return
	}
	e.out.Printf("%s: %s", verb, sv.NEVRA())
}
