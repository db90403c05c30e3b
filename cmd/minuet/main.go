package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"

	minuet "github.com/minuetaitor/minuet-go"
	"github.com/minuetaitor/minuet-go/apierrors"
	"github.com/minuetaitor/minuet-go/internal/utils"
	"github.com/minuetaitor/minuet-go/prefs"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running console: %s\n", err)
	}
	log.Printf("Console stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	sess, err := minuet.New(minuet.WithExpiryNotifier(&terminalNotifier{}))
	if err != nil {
		return fmt.Errorf("minuet.New: %w", err)
	}
	defer sess.Close()

	displayAppname(sess.Config.GetAppName())

	ctx := context.Background()

	// A forced logout (expiry) drops us back to the login prompt with the
	// interrupted destination preserved.
	loggedOut := make(chan struct{}, 1)
	sess.Auth.OnLogout(func(reason string) {
		if reason == "expired" {
			sess.Auth.SetLastVisited("dashboard")
		}
		select {
		case loggedOut <- struct{}{}:
		default:
		}
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// One reader owns stdin; the login prompt and the command loop both
	// consume from it.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		if !sess.Auth.IsAuthenticated() {
			if err := promptLogin(ctx, sess, lines); err != nil {
				return err
			}
		}
		sess.Start()
		showDashboard(ctx, sess)

		again, err := commandLoop(ctx, sess, lines, stop, loggedOut)
		if err != nil || !again {
			return err
		}
	}
}

func promptLogin(ctx context.Context, sess *minuet.Session, lines <-chan string) error {
	for {
		remembered := sess.Prefs.Current().LastCredential
		if remembered != "" {
			fmt.Printf("username or email [%s]: ", remembered)
		} else {
			fmt.Print("username or email: ")
		}
		credential, ok := <-lines
		if !ok {
			return errors.New("stdin closed")
		}
		credential = strings.TrimSpace(credential)
		if credential == "" {
			credential = remembered
		}
		fmt.Print("password: ")
		password, ok := <-lines
		if !ok {
			return errors.New("stdin closed")
		}

		err := sess.Login(ctx, credential, strings.TrimSpace(password))
		if err == nil {
			if prefsErr := sess.Prefs.Update(func(doc *prefs.Document) {
				doc.LastCredential = credential
			}); prefsErr != nil {
				fmt.Printf("could not remember credential: %v\n", prefsErr)
			}
			if dest := sess.Auth.LastVisited(); dest != "" {
				fmt.Printf("returning to %s\n", dest)
			}
			return nil
		}

		desc := apierrors.Describe(apierrors.CodeOf(err))
		fmt.Printf("%s: %s %s\n", desc.Title, desc.Message, desc.Action)
		if apierrors.CodeOf(err) != apierrors.CodeInvalidCredentials {
			return err
		}
	}
}

func showDashboard(ctx context.Context, sess *minuet.Session) {
	me := sess.Profile.Current()
	fmt.Printf("\nsigned in as %s (%s)\n", me.User.FullName, strings.Join(me.Authz.Roles, ", "))
	if active := utils.Value(me.Connections.Active); active.Device != "" {
		fmt.Printf("active connection: %s since %s\n", active.Device, active.StartedAt.Format(time.RFC822))
	}

	summary, err := sess.API.DashboardSummary(ctx)
	if err != nil {
		desc := apierrors.Describe(apierrors.CodeOf(err))
		fmt.Printf("dashboard unavailable: %s\n", desc.Message)
		return
	}

	fmt.Printf("clients: %d  projects: %d  minutes: %d  teams: %d\n",
		summary.Clients, summary.Projects, summary.Minutes, summary.Teams)
	for _, minute := range summary.RecentMinutes {
		fmt.Printf("  %s  %s\n", minute.HeldAt.Format("2006-01-02"), minute.Title)
	}
	fmt.Println("\ncommands: r = renew session, q = quit")
}

// commandLoop handles commands until the session ends or the process is
// asked to stop. It reports whether the outer loop should go around again.
func commandLoop(ctx context.Context, sess *minuet.Session, lines <-chan string, stop <-chan os.Signal, loggedOut <-chan struct{}) (again bool, err error) {
	for {
		select {
		case <-stop:
			return false, nil
		case <-loggedOut:
			return true, nil
		case line, ok := <-lines:
			if !ok {
				return false, nil
			}
			switch strings.TrimSpace(line) {
			case "r":
				if err := sess.Expiry.KeepAlive(ctx); err != nil {
					desc := apierrors.Describe(apierrors.CodeOf(err))
					fmt.Printf("renewal failed: %s %s\n", desc.Message, desc.Action)
					continue
				}
				fmt.Println("session renewed")
			case "q":
				sess.Logout("user_requested")
				return false, nil
			}
		}
	}
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

// terminalNotifier renders countdown events on the console.
type terminalNotifier struct{}

func (*terminalNotifier) WarningShown(remaining time.Duration) {
	fmt.Printf("\nsession expires in %s, press r to stay signed in or q to sign out\n", remaining.Round(time.Second))
}

func (*terminalNotifier) Tick(remaining time.Duration) {
	fmt.Printf("\rsession expires in %-8s", remaining.Round(time.Second))
}

func (*terminalNotifier) WarningCleared() {
	fmt.Println("\nsession renewed")
}

func (*terminalNotifier) KeepAliveFailed(err error) {
	desc := apierrors.Describe(apierrors.CodeOf(err))
	fmt.Printf("\nrenewal failed: %s %s\n", desc.Message, desc.Action)
}

func (*terminalNotifier) ForcedLogout() {
	fmt.Println("\nsession expired, signed out")
}
