// internal/insiderctl/insiderctl.go
package insiderctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/latrix/insider/internal/contactclient"
	"github.com/latrix/insider/internal/contactform"
	"github.com/latrix/insider/logging"
	"github.com/latrix/insider/pantry/version"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// Run is the entrypoint for the insiderctl binary.
//
// binName is the CLI name shown in usage text. args excludes the binary name
// (os.Args[1:]). It returns a process exit code.
func Run(binName string, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(binName, stderr)
		return 1
	}

	switch args[0] {
	case "submit":
		return submitCmd(binName, args[1:], stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "help", "-h", "--help":
		usage(binName, stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %q\n\n", args[0])
		usage(binName, stderr)
		return 1
	}
}

func usage(binName string, w io.Writer) {
	fmt.Fprintf(w, "Latrix Insider contact CLI (%s)\n", binName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s submit --first-name <n> --last-name <n> --mobile <m> --email <e> --message <text> [--endpoint <url>]\n", binName)
	fmt.Fprintf(w, "  %s version\n", binName)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Example:")
	fmt.Fprintf(w, "  %s submit --endpoint http://localhost:8080 --first-name Jane --last-name Doe \\\n", binName)
	fmt.Fprintln(w, "      --mobile \"+1 555 0100\" --email jane@example.com --message \"Planning a June wedding.\"")
}

func submitCmd(binName string, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("submit", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	endpoint := fs.String("endpoint", "http://localhost:8080", "Relay base URL or full /api/send-email URL")
	firstName := fs.String("first-name", "", "First name")
	lastName := fs.String("last-name", "", "Last name")
	mobile := fs.String("mobile", "", "Mobile number")
	emailAddr := fs.String("email", "", "Email address")
	message := fs.String("message", "", "Message (at least 10 characters)")
	timeout := fs.Duration("timeout", 30*time.Second, "Request timeout")
	verbose := fs.Bool("verbose", false, "Log request details")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s submit [flags]\n", binName)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	logger := zap.NewNop()
	if *verbose {
		logger = logging.BootstrapLogger()
		defer logger.Sync()
	}

	s := contactclient.New(relayURL(*endpoint),
		contactclient.WithHTTPClient(&http.Client{Timeout: *timeout}),
		contactclient.WithLogger(logger),
	)
	s.SetAll(contactform.Payload{
		FirstName:    *firstName,
		LastName:     *lastName,
		MobileNumber: *mobile,
		Email:        *emailAddr,
		Message:      *message,
	})

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	err := s.Submit(ctx)
	var fe contactform.FieldErrors
	switch {
	case err == nil:
		fmt.Fprintln(stdout, s.State().Banner)
		return 0
	case errors.As(err, &fe):
		for _, f := range contactform.Fields {
			if msg, ok := fe[f]; ok {
				fmt.Fprintf(stderr, "%s: %s\n", flagFor(f), msg)
			}
		}
		return 2
	default:
		fmt.Fprintf(stderr, "error: %s\n", s.State().Banner)
		return 1
	}
}

// relayURL appends the relay path unless endpoint already names it.
func relayURL(endpoint string) string {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if strings.HasSuffix(endpoint, contactclient.DefaultPath) {
		return endpoint
	}
	return endpoint + contactclient.DefaultPath
}

func flagFor(field string) string {
	switch field {
	case contactform.FieldFirstName:
		return "--first-name"
	case contactform.FieldLastName:
		return "--last-name"
	case contactform.FieldMobileNumber:
		return "--mobile"
	case contactform.FieldEmail:
		return "--email"
	default:
		return "--message"
	}
}
