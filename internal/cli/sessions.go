package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/discovery-agent/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage discovery sessions",
}

func init() {
	list := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		Run:   runSessionsList,
	}
	list.Flags().StringP("status", "s", "", "Filter by status: pending, running, completed, failed")
	list.Flags().IntP("limit", "l", 20, "Max results")

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionsShow,
	}

	logs := &cobra.Command{
		Use:   "logs <session-id>",
		Short: "Print a session's progress log",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionsLogs,
	}

	rm := &cobra.Command{
		Use:   "rm <session-id>",
		Short: "Delete a session and its logs",
		Args:  cobra.ExactArgs(1),
		Run:   runSessionsRm,
	}

	sessionsCmd.AddCommand(list, show, logs, rm)
	RootCmd.AddCommand(sessionsCmd)
}

func runSessionsList(cmd *cobra.Command, args []string) {
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")

	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sessions, err := s.List(cmd.Context(), session.ListParams{Status: status, Limit: limit})
	if err != nil {
		exitErr("list", err)
	}

	b, _ := json.MarshalIndent(sessions, "", "  ")
	fmt.Println(string(b))
}

func runSessionsShow(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	sess, err := s.Get(cmd.Context(), args[0])
	if err != nil {
		exitErr("show", err)
	}

	b, _ := json.MarshalIndent(sess, "", "  ")
	fmt.Println(string(b))
}

func runSessionsLogs(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	logs, err := s.Logs(cmd.Context(), args[0])
	if err != nil {
		exitErr("logs", err)
	}

	for _, l := range logs {
		fmt.Printf("%s [%s] %s\n", l.Timestamp.Format("2006-01-02 15:04:05"), l.Phase, l.Message)
	}
}

func runSessionsRm(cmd *cobra.Command, args []string) {
	s, err := openStore()
	if err != nil {
		exitErr("open store", err)
	}
	defer s.Close()

	if err := s.Delete(cmd.Context(), args[0]); err != nil {
		exitErr("rm", err)
	}
	fmt.Printf("deleted %s\n", args[0])
}
