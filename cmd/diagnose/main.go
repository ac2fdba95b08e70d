// Command diagnose prints recent dispatch logs, a sample of stored students
// and the mail configuration with the password masked.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"student-result-system/internal/config"
	"student-result-system/internal/db"
	"student-result-system/internal/logger"
	"student-result-system/internal/model"
)

func main() {
	logLimit := flag.Int("logs", 10, "number of recent log entries to show")
	studentLimit := flag.Int("students", 5, "number of students to show")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	logger.Init(cfg.Logging.Level, "console")
	log := logger.For("diagnose")

	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()
	repo := db.NewRepository(database)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logs, err := repo.RecentDispatchLogs(ctx, *logLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read email logs")
	}
	students, err := repo.SampleStudents(ctx, *studentLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read students")
	}

	printDiagnostics(os.Stdout, logs, students, cfg.Mail)
}

func section(w io.Writer, title string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintf(w, "%s\n%s\n%s\n", line, title, line)
}

func printDiagnostics(out io.Writer, logs []model.DispatchLog, students []model.Student, mailCfg config.MailConfig) {
	section(out, fmt.Sprintf("RECENT EMAIL LOGS (Last %d)", len(logs)))
	if len(logs) == 0 {
		fmt.Fprintln(out, "No email logs found.")
	} else {
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSTUDENT\tEMAIL\tSTATUS\tTIME\tERROR")
		for i, l := range logs {
			errMsg := ""
			if l.ErrorMessage != nil {
				errMsg = *l.ErrorMessage
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, l.StudentName, l.StudentEmail, l.Status,
				l.SentAt.UTC().Format("2006-01-02 15:04:05"), errMsg)
		}
		tw.Flush()
	}

	fmt.Fprintln(out)
	section(out, "STUDENTS IN DATABASE")
	if len(students) == 0 {
		fmt.Fprintln(out, "No students found.")
	}
	for _, s := range students {
		fmt.Fprintf(out, "%d. %s (%s) - %s\n", s.ID, s.FullName(), s.Email, s.Class)
	}

	fmt.Fprintln(out)
	section(out, "EMAIL CONFIGURATION CHECK")
	fmt.Fprintf(out, "SERVER: %s:%d (tls %s)\n", mailCfg.Host, mailCfg.Port, mailCfg.TLS)
	fmt.Fprintf(out, "MAIL_USERNAME: %s\n", orNotSet(mailCfg.Username))
	fmt.Fprintf(out, "MAIL_PASSWORD: %s\n", mask(mailCfg.Password))
}

func orNotSet(v string) string {
	if v == "" {
		return "NOT SET"
	}
	return v
}

func mask(v string) string {
	if v == "" {
		return "NOT SET"
	}
	return strings.Repeat("*", len(v))
}
