// Command typist is the terminal client for typerace.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mcdev12/typerace/go/internal/events"
	"github.com/mcdev12/typerace/go/internal/game"
	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/typist"
	"github.com/mcdev12/typerace/go/internal/typist/tui"
)

var (
	serverURL string
	stateDir  string
	verbose   bool

	botWPM      int
	botAccuracy float64
	botSeed     uint64
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "typist",
		Short:        "Race other typists in continuous rounds",
		SilenceUsage: true,
		RunE:         runPlayCmd,
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", typist.DefaultServerURL, "typerace server URL")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", typist.DefaultStateDir(), "directory for credentials and logs")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newBotCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newWhoAmICmd())
	return rootCmd
}

func newBotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Play headless at a fixed pace",
		Args:  cobra.NoArgs,
		RunE:  runBotCmd,
	}
	cmd.Flags().IntVar(&botWPM, "wpm", typist.DefaultBotWPM, "typing speed in words per minute")
	cmd.Flags().Float64Var(&botAccuracy, "accuracy", 1, "chance each character is correct (0-1)")
	cmd.Flags().Uint64Var(&botSeed, "seed", uint64(time.Now().UnixNano()), "random seed for typos")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show your lifetime averages",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the saved identity and player",
		Args:  cobra.NoArgs,
		RunE:  runWhoAmICmd,
	}
}

// session is a signed-in client with its player.
type session struct {
	client *typist.Client
	tokens *typist.TokenStore
	player *models.Player
	creds  *typist.Credentials
}

func connect(cmd *cobra.Command) (*session, error) {
	fileCfg, err := typist.LoadConfig(typist.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if fileCfg.Server.URL != nil && !cmd.Flags().Changed("server") {
		serverURL = *fileCfg.Server.URL
	}
	if fileCfg.Bot.WPM != nil && !cmd.Flags().Changed("wpm") {
		botWPM = *fileCfg.Bot.WPM
	}
	if fileCfg.Bot.Accuracy != nil && !cmd.Flags().Changed("accuracy") {
		botAccuracy = *fileCfg.Bot.Accuracy
	}

	tokens := typist.NewTokenStore(stateDir)
	client := typist.NewClient(&http.Client{Timeout: 15 * time.Second}, serverURL, tokens.Token)

	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()

	creds, err := tokens.SignIn(ctx, client.Identity, time.Now())
	if err != nil {
		return nil, err
	}
	p, err := client.FindOrCreatePlayer(ctx)
	if err != nil {
		return nil, err
	}
	return &session{client: client, tokens: tokens, player: p, creds: creds}, nil
}

func setupLogging(out *os.File) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stderr})
}

// race wires a controller to the gateway channel and runs both until ctx ends.
func race(ctx context.Context, s *session, cfg game.Config) (*game.Controller, func() error, error) {
	wsURL, err := typist.GatewayURL(serverURL)
	if err != nil {
		return nil, nil, err
	}

	clock := clockwork.NewRealClock()
	var controller *game.Controller
	channel := typist.NewChannel(typist.DefaultChannelConfig(wsURL, s.tokens.Token), clock, func(event *events.RoundEvent) {
		controller.Deliver(event)
	})
	controller = game.NewController(s.client, channel, clock, s.player, cfg)

	run := func() error {
		go func() {
			if err := channel.Run(ctx); err != nil {
				log.Error().Err(err).Msg("progress channel stopped")
			}
		}()
		return controller.Run(ctx)
	}
	return controller, run, nil
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("typist needs a terminal; use `typist bot` for headless play")
	}

	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(stateDir, "typist.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	setupLogging(logFile)

	s, err := connect(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	views := make(chan game.View, 1)
	cfg := game.DefaultConfig()
	cfg.OnChange = func(v game.View) {
		// keep only the newest view so the controller never waits on the screen
		select {
		case <-views:
		default:
		}
		views <- v
	}

	controller, run, err := race(ctx, s, cfg)
	if err != nil {
		return err
	}

	program := tea.NewProgram(tui.NewModel(controller), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case v := <-views:
				program.Send(tui.ViewMsg(v))
			}
		}
	}()
	go func() {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("controller stopped")
		}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func runBotCmd(cmd *cobra.Command, _ []string) error {
	setupLogging(os.Stderr)

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	log.Info().
		Str("player", s.player.Name).
		Int("wpm", botWPM).
		Float64("accuracy", botAccuracy).
		Msg("bot joining")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := game.DefaultConfig()
	controller, run, err := race(ctx, s, cfg)
	if err != nil {
		return err
	}

	settings := typist.DefaultBotSettings()
	settings.WPM = botWPM
	settings.Accuracy = botAccuracy
	settings.Seed = botSeed
	bot := typist.NewBot(controller, clockwork.NewRealClock(), settings)
	go func() {
		if err := bot.Run(ctx); err != nil {
			log.Error().Err(err).Msg("bot stopped")
		}
	}()

	return run()
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	setupLogging(os.Stderr)

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	stats, err := s.client.GetPlayerStats(cmd.Context(), s.player.ID)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", s.player.Name)
	fmt.Fprintf(out, "  rounds played  %d\n", stats.RoundsPlayed)
	fmt.Fprintf(out, "  average wpm    %.1f\n", stats.AvgWPM)
	fmt.Fprintf(out, "  accuracy       %.1f%%\n", stats.AvgAccuracy*100)
	return nil
}

func runWhoAmICmd(cmd *cobra.Command, _ []string) error {
	setupLogging(os.Stderr)

	s, err := connect(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "player   %s (%s)\n", s.player.Name, s.player.ID)
	fmt.Fprintf(out, "identity %s\n", s.creds.AuthID)
	fmt.Fprintf(out, "expires  %s\n", s.creds.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}
