// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package display drives the pagination engine from a line-oriented
// terminal session. Each input line is one command; "n" plays the role of
// scrolling to the bottom of the list.
package display

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/paperfeed/internal/pager"
	"github.com/pdiddy/paperfeed/internal/prefs"
	"github.com/pdiddy/paperfeed/internal/query"
	"github.com/pdiddy/paperfeed/pkg/types"
)

// Tabs.
const (
	TabBrowse = "browse"
	TabSaved  = prefs.Saved
	TabLiked  = prefs.Liked
)

// Engine is the pagination contract the session drives.
type Engine interface {
	SetScope(ctx context.Context, scope query.Scope) bool
	LoadMore(ctx context.Context) bool
	Snapshot() pager.Snapshot
}

// Preferences is the subset of the preference store the session uses.
type Preferences interface {
	Toggle(ctx context.Context, name string, p types.Paper) (bool, error)
	List(name string) ([]types.Paper, error)
	Contains(name, id string) bool
}

// Options sets the initial filter and collaborators of a Session.
type Options struct {
	Text       string
	Categories []string
	Roots      []string
	Logger     zerolog.Logger
}

// Session is one interactive browsing session.
type Session struct {
	engine Engine
	prefs  Preferences
	in     io.Reader
	out    io.Writer
	log    zerolog.Logger

	roots      []string
	text       string
	categories []string
	tab        string
}

func NewSession(engine Engine, p Preferences, in io.Reader, out io.Writer, opts Options) *Session {
	return &Session{
		engine:     engine,
		prefs:      p,
		in:         in,
		out:        out,
		log:        opts.Logger,
		roots:      opts.Roots,
		text:       opts.Text,
		categories: opts.Categories,
		tab:        TabBrowse,
	}
}

// Run applies the initial filter, then executes commands until "q", end
// of input, or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	if err := s.applyScope(ctx); err != nil {
		return err
	}

	sc := bufio.NewScanner(s.in)
	fmt.Fprint(s.out, "> ")
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := s.exec(ctx, strings.TrimSpace(sc.Text()))
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		fmt.Fprint(s.out, "> ")
	}
	return sc.Err()
}

func (s *Session) exec(ctx context.Context, line string) (bool, error) {
	switch {
	case line == "q" || line == "quit":
		return true, nil
	case line == "" || line == "n":
		s.loadMore(ctx)
	case line == "?" || line == "help":
		s.help()
	case strings.HasPrefix(line, "/"):
		s.text = strings.TrimSpace(line[1:])
		return false, s.applyScope(ctx)
	case line == "c" || strings.HasPrefix(line, "c "):
		s.categories = strings.FieldsFunc(strings.TrimPrefix(line, "c"), func(r rune) bool {
			return r == ',' || r == ' '
		})
		return false, s.applyScope(ctx)
	case strings.HasPrefix(line, "s "):
		s.toggle(ctx, prefs.Saved, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "l "):
		s.toggle(ctx, prefs.Liked, strings.TrimSpace(line[2:]))
	case strings.HasPrefix(line, "tab "):
		s.switchTab(strings.TrimSpace(line[4:]))
	default:
		fmt.Fprintf(s.out, "Unknown command %q (? for help)\n", line)
	}
	return false, nil
}

func (s *Session) applyScope(ctx context.Context) error {
	scope, err := query.Build(s.text, s.categories, s.roots...)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid filter: %v\n", err)
		return nil
	}
	s.tab = TabBrowse
	if !s.engine.SetScope(ctx, scope) {
		fmt.Fprintln(s.out, "Filter unchanged.")
		return nil
	}
	s.log.Debug().Str("scope", scope.Key()).Msg("filter applied")
	fmt.Fprintf(s.out, "Filter: %s\n", scope.Expression)
	s.renderFrom(0)
	return nil
}

func (s *Session) loadMore(ctx context.Context) {
	if s.tab != TabBrowse {
		fmt.Fprintln(s.out, "Switch to the browse tab to load more.")
		return
	}
	before := len(s.engine.Snapshot().Papers)
	if !s.engine.LoadMore(ctx) {
		snap := s.engine.Snapshot()
		switch {
		case snap.Loading:
			fmt.Fprintln(s.out, "Still loading.")
		case !snap.HasMore:
			fmt.Fprintln(s.out, "End of results.")
		default:
			fmt.Fprintln(s.out, "Too soon, try again in a moment.")
		}
		return
	}
	s.renderFrom(before)
}

// visible returns the papers the current tab shows.
func (s *Session) visible() []types.Paper {
	if s.tab == TabBrowse {
		return s.engine.Snapshot().Papers
	}
	papers, err := s.prefs.List(s.tab)
	if err != nil {
		return nil
	}
	return papers
}

func (s *Session) renderFrom(from int) {
	papers := s.visible()
	for i := from; i < len(papers); i++ {
		s.card(i+1, papers[i])
	}
	s.status(len(papers), len(papers)-from)
}

func (s *Session) status(total, added int) {
	if s.tab != TabBrowse {
		fmt.Fprintf(s.out, "-- %s: %d papers --\n", s.tab, total)
		return
	}
	snap := s.engine.Snapshot()
	state := "more available"
	switch {
	case snap.Loading:
		state = "loading"
	case !snap.HasMore:
		state = "end of results"
	}
	fmt.Fprintf(s.out, "-- %d papers (+%d), %s --\n", total, added, state)
}

func (s *Session) card(n int, p types.Paper) {
	title := p.Title
	if p.IsPlaceholder() {
		title += " [placeholder]"
	}
	fmt.Fprintf(s.out, "[%d] %s\n", n, title)

	var meta []string
	if len(p.Authors) > 0 {
		a := p.Authors[0]
		if len(p.Authors) > 1 {
			a += " et al."
		}
		meta = append(meta, a)
	}
	if p.Published != nil {
		meta = append(meta, p.Published.Format("2006-01-02"))
	}
	if len(p.Categories) > 0 {
		meta = append(meta, strings.Join(p.Categories, ", "))
	}
	if s.prefs.Contains(prefs.Saved, p.ID) {
		meta = append(meta, "saved")
	}
	if s.prefs.Contains(prefs.Liked, p.ID) {
		meta = append(meta, "liked")
	}
	fmt.Fprintf(s.out, "    %s\n", strings.Join(meta, " | "))
}

func (s *Session) toggle(ctx context.Context, name, arg string) {
	papers := s.visible()
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > len(papers) {
		fmt.Fprintf(s.out, "No paper %q in this list.\n", arg)
		return
	}
	p := papers[i-1]
	added, err := s.prefs.Toggle(ctx, name, p)
	if err != nil {
		s.log.Error().Err(err).Str("collection", name).Str("paper", p.ID).Msg("toggle failed")
		fmt.Fprintf(s.out, "Could not update %s: %v\n", name, err)
		return
	}
	if added {
		fmt.Fprintf(s.out, "Added to %s: %s\n", name, p.Title)
	} else {
		fmt.Fprintf(s.out, "Removed from %s: %s\n", name, p.Title)
	}
}

func (s *Session) switchTab(tab string) {
	switch tab {
	case TabBrowse, TabSaved, TabLiked:
	default:
		fmt.Fprintf(s.out, "Unknown tab %q (browse, saved, liked)\n", tab)
		return
	}
	s.tab = tab
	s.renderFrom(0)
}

func (s *Session) help() {
	fmt.Fprint(s.out, `Commands:
  n             load more papers (also an empty line)
  s <i>, l <i>  toggle saved / liked for paper i
  /<text>       filter titles by text ("/" alone clears)
  c <codes>     filter by categories, e.g. "c cs.LG,cv" ("c" alone clears)
  tab <name>    show browse, saved or liked
  q             quit
`)
}
