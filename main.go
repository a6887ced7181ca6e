// Kestrel TUI - a terminal client for the Kestrel chat platform.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/morganforge/kestrel-tui/internal/chat"
	"github.com/morganforge/kestrel-tui/internal/cli"
	"github.com/morganforge/kestrel-tui/internal/cloud"
	"github.com/morganforge/kestrel-tui/internal/config"
	"github.com/morganforge/kestrel-tui/internal/features"
	"github.com/morganforge/kestrel-tui/internal/model"
	"github.com/morganforge/kestrel-tui/internal/plugin"
	"github.com/morganforge/kestrel-tui/internal/session"
	"github.com/morganforge/kestrel-tui/internal/storage"
	uichat "github.com/morganforge/kestrel-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		os.Exit(run(cmd, args))
	}
}

// app bundles everything the entry points share.
type app struct {
	cfg       *config.Config
	client    *cloud.Client
	store     *chat.Store
	snapshots *storage.SnapshotStore
	archive   *storage.Archive
	registry  *plugin.Registry
	features  *features.Set
	session   *session.Manager
}

func run(cmd cli.Command, args []string) int {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	client := cloud.NewClient(cfg.APIKey).WithRateLimit(cfg.RequestRate, 10)
	if cfg.Endpoint != "" {
		client = client.WithBaseURL(cfg.Endpoint)
	}

	if cmd == cli.CmdAsk {
		return cli.HandleAsk(client, args)
	}

	a, err := buildApp(cfg, client)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer a.shutdown()

	switch cmd {
	case cli.CmdExport:
		return cli.HandleExport(a.archive, args)
	case cli.CmdChat:
		return cli.HandleChat(a.store, a.client, a.features, cfg.StateDir)
	}

	// Interactive TUI; fall back to the REPL without a terminal.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return cli.HandleChat(a.store, a.client, a.features, cfg.StateDir)
	}
	return a.runTUI()
}

// buildApp assembles the store, persistence, features and session.
func buildApp(cfg *config.Config, client *cloud.Client) (*app, error) {
	store := chat.NewStore()

	snapshots, err := storage.NewSnapshotStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	store.AdoptConversations(snapshots.Load())

	archive, err := storage.OpenArchive(cfg.ArchivePath)
	if err != nil {
		log.Printf("archive unavailable: %v", err)
		archive = nil
	}

	// Feature configuration comes from the platform; unreachable means
	// every optional feature stays off.
	fc := config.DefaultFeatureConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if raw, err := client.FetchRawConfig(ctx); err == nil {
		if parsed, err := config.ParseFeatureConfig(raw); err == nil {
			fc = parsed
		} else {
			log.Printf("feature config rejected: %v", err)
		}
	} else {
		log.Printf("feature config unavailable: %v", err)
	}
	cancel()

	registry := plugin.NewRegistry()
	set := features.NewSet(store, archive, fc)
	features.Apply(registry, set, fc)

	sess := session.NewManager(session.Config{
		IdleTimeout:      time.Duration(fc.Auth.IdleTimeout) * time.Second,
		AutoSaveEnabled:  cfg.AutoSaveInterval > 0,
		AutoSaveInterval: cfg.AutoSaveInterval,
	})
	sess.SetAutoSaveCallback(func() error {
		keys, err := saveSnapshot(store, snapshots)
		if err != nil {
			return err
		}
		for _, key := range keys {
			store.MarkPersisted(key)
		}
		return nil
	})

	return &app{
		cfg:       cfg,
		client:    client,
		store:     store,
		snapshots: snapshots,
		archive:   archive,
		registry:  registry,
		features:  set,
		session:   sess,
	}, nil
}

// runTUI starts the Bubble Tea program with store and registry wired in.
func (a *app) runTUI() int {
	view := uichat.New(uichat.Options{
		Store:     a.store,
		Registry:  a.registry,
		Features:  a.features,
		Session:   a.session,
		Transport: a.client,
		Config:    a.cfg,
	})
	program := tea.NewProgram(view, tea.WithAltScreen())

	unsubStore := a.store.Subscribe(func() {
		program.Send(uichat.StoreChangedMsg{})
	})
	defer unsubStore()
	unsubRegistry := a.registry.Subscribe(func() {
		program.Send(uichat.RegistryChangedMsg{})
	})
	defer unsubRegistry()

	// Hot-reload local config edits while the TUI runs.
	watcher, err := config.NewWatcher(config.DefaultPath(), 500*time.Millisecond, func(cfg *config.Config) {
		a.client.WithRateLimit(cfg.RequestRate, 10)
		a.session.SetAutoSaveInterval(cfg.AutoSaveInterval)
		log.Printf("configuration reloaded")
	})
	if err == nil {
		if err := watcher.Watch(); err != nil {
			log.Printf("config watch failed: %v", err)
		}
		defer watcher.Close()
	}

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// shutdown flushes state on exit.
func (a *app) shutdown() {
	if _, err := saveSnapshot(a.store, a.snapshots); err != nil {
		log.Printf("final save failed: %v", err)
	}
	if a.archive != nil {
		a.archive.Close()
	}
}

// saveSnapshot writes the conversations to disk under the store lock, so a
// conversation with an open stream serializes as one consistent state.
// Returns the keys that were saved.
func saveSnapshot(store *chat.Store, snapshots *storage.SnapshotStore) ([]string, error) {
	var keys []string
	var err error
	store.Read(func(snap *chat.Snapshot) {
		conversations := make(map[string]*model.Conversation, len(snap.Keys))
		for i, key := range snap.Keys {
			conversations[key] = snap.Conversations[i]
		}
		keys = snap.Keys
		err = snapshots.Save(conversations)
	})
	return keys, err
}
