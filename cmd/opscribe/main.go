package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"opscribe/internal/api"
	"opscribe/internal/app"
	"opscribe/internal/config"
	"opscribe/internal/db"
	"opscribe/internal/session"
)

const version = "1.0.0"

var (
	flagConfig         string
	flagName           string
	flagWargame        string
	flagScenario       string
	flagPhase          string
	flagLocation       string
	flagOrganization   string
	flagClassification string
	flagCaveatType     string
	flagCaveatText     string
	flagParticipants   []string
)

func loadConfig() (config.Config, error) {
	path := flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	return config.Load(path)
}

// tokenProvider prefers the environment token and falls back to the
// configured token file.
func tokenProvider(cfg config.Config) api.TokenProvider {
	if tok := os.Getenv("OPSCRIBE_TOKEN"); tok != "" {
		return api.StaticToken(tok)
	}
	return api.FileToken(cfg.TokenFile)
}

// parseParticipants expands repeated --participant "Name:Role" flags.
func parseParticipants(specs []string) []session.Participant {
	var out []session.Participant
	for _, spec := range specs {
		name, role, _ := strings.Cut(spec, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, session.Participant{
			ID:   uuid.NewString(),
			Name: name,
			Role: strings.TrimSpace(role),
		})
	}
	return out
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sess := session.Session{
		Name:           flagName,
		Classification: flagClassification,
		CaveatType:     flagCaveatType,
		CaveatText:     flagCaveatText,
		Metadata: session.EventMetadata{
			Wargame:      flagWargame,
			Scenario:     flagScenario,
			Phase:        flagPhase,
			Location:     flagLocation,
			Organization: flagOrganization,
		},
		Participants: parseParticipants(flagParticipants),
	}

	client := api.NewClient(cfg.BackendURL, tokenProvider(cfg))
	p := tea.NewProgram(app.New(cfg, client, sess), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	client := api.NewClient(cfg.BackendURL, tokenProvider(cfg))

	list, err := client.ListSessions(context.Background())
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("no stored sessions")
		return nil
	}
	for _, s := range list {
		line := fmt.Sprintf("%s  %s  %s", s.SessionID, s.StartTime.Format("2006-01-02 15:04"), s.SessionName)
		if s.EventMetadata.Wargame != "" {
			line += "  (" + s.EventMetadata.Wargame + ")"
		}
		fmt.Println(line)
	}
	return nil
}

func openStore(cfg config.Config) (*db.Store, error) {
	path := cfg.BackupDB
	if path == "" {
		path = db.DefaultPath()
	}
	return db.Open(path)
}

func runBackupsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no local backups")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %s  %s  %d bytes audio\n",
			info.SessionID, info.SavedAt.Format("2006-01-02 15:04"), info.Name, info.AudioBytes)
	}
	return nil
}

func runBackupsExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := store.Backup(args[0])
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("no backup for session %s", args[0])
	}

	if err := os.WriteFile(args[1], b.Audio, 0o644); err != nil {
		return err
	}
	if len(args) > 2 {
		if err := os.WriteFile(args[2], []byte(b.Transcript), 0o644); err != nil {
			return err
		}
	}
	fmt.Printf("exported %d bytes of audio from %s\n", len(b.Audio), args[0])
	return nil
}

func main() {
	root := &cobra.Command{
		Use:     "opscribe",
		Short:   "Exercise recording and transcription console",
		Long:    "opscribe captures exercise audio, streams it for live transcription, and manages session markers and stored recordings.",
		Version: version,
		RunE:    runRecord,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	root.Flags().StringVar(&flagName, "name", "", "session name")
	root.Flags().StringVar(&flagWargame, "wargame", "", "wargame name")
	root.Flags().StringVar(&flagScenario, "scenario", "", "scenario name")
	root.Flags().StringVar(&flagPhase, "phase", "", "exercise phase")
	root.Flags().StringVar(&flagLocation, "location", "", "location")
	root.Flags().StringVar(&flagOrganization, "org", "", "organization")
	root.Flags().StringVar(&flagClassification, "classification", "", "classification level")
	root.Flags().StringVar(&flagCaveatType, "caveat-type", "", "classification caveat type")
	root.Flags().StringVar(&flagCaveatText, "caveat-text", "", "custom caveat text")
	root.Flags().StringArrayVar(&flagParticipants, "participant", nil, "participant as Name or Name:Role (repeatable)")

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions on the backend",
		RunE:  runSessions,
	}
	root.AddCommand(sessionsCmd)

	backupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "Manage local session backups",
		RunE:  runBackupsList,
	}
	backupsCmd.AddCommand(&cobra.Command{
		Use:   "export <session-id> <audio-file> [transcript-file]",
		Short: "Export a backup's audio (and optionally its transcript)",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runBackupsExport,
	})
	root.AddCommand(backupsCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
