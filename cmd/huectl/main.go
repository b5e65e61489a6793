package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	fcolor "github.com/fatih/color"
	"github.com/spf13/cobra"
)

type ui struct {
	title func(a ...any) string
	ok    func(a ...any) string
	warn  func(a ...any) string
	err   func(a ...any) string
	dim   func(a ...any) string
}

func newUI() *ui {
	return &ui{
		title: fcolor.New(fcolor.FgHiCyan, fcolor.Bold).SprintFunc(),
		ok:    fcolor.New(fcolor.FgGreen, fcolor.Bold).SprintFunc(),
		warn:  fcolor.New(fcolor.FgYellow).SprintFunc(),
		err:   fcolor.New(fcolor.FgRed, fcolor.Bold).SprintFunc(),
		dim:   fcolor.New(fcolor.FgHiBlack).SprintFunc(),
	}
}

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func (o *options) client() *client {
	return newClient(o.baseURL, o.token, o.timeout)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	u := newUI()
	if err := newRootCmd(u).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, u.err("[ERROR]"), err.Error())
		os.Exit(1)
	}
}

func newRootCmd(u *ui) *cobra.Command {
	opts := &options{
		baseURL: getenv("HUECTL_BASE_URL", "http://localhost:8000"),
		token:   getenv("HUECTL_TOKEN", getenv("GOOGLE_ID_TOKEN", "")),
		timeout: 15 * time.Second,
	}

	root := &cobra.Command{
		Use:   "huectl",
		Short: "Hue gateway CLI",
		Long:  "huectl lists and invokes the lighting tools exposed by a hue-gateway.",
	}
	root.SilenceUsage = true

	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", opts.baseURL, "Gateway base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", opts.token, "Google ID token sent as a bearer credential")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "Request timeout")

	root.AddCommand(toolsCmd(opts, u))
	root.AddCommand(callCmd(opts, u))
	root.AddCommand(statusCmd(opts, u))
	return root
}

func toolsCmd(opts *options, u *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := opts.client().listTools(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range list {
				fmt.Fprintf(out, "%s  %s\n", u.title(t.Name), t.Description)
				for _, p := range t.Parameters {
					req := ""
					if p.Required {
						req = " (required)"
					}
					fmt.Fprintf(out, "    %s %s%s\n", p.Name, u.dim(p.Type), req)
				}
			}
			return nil
		},
	}
}

func callCmd(opts *options, u *ui) *cobra.Command {
	var rawJSON string
	cmd := &cobra.Command{
		Use:   "call <tool> [key=value ...]",
		Short: "Invoke a tool",
		Example: `  huectl call set_room_lights room=Kitchen on=true
  huectl call set_light_state light_id=6 red=255 green=120 blue=0
  huectl call get_rooms`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toolArgs, err := parseArgs(args[1:], rawJSON)
			if err != nil {
				return err
			}
			if opts.token == "" {
				fmt.Fprintln(cmd.ErrOrStderr(), u.warn("[WARN]"), "no token set; the gateway may reject the call")
			}
			body, err := opts.client().callTool(cmd.Context(), args[0], toolArgs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), u.ok("[OK]"), args[0])
			return writeJSON(cmd, body)
		},
	}
	cmd.Flags().StringVar(&rawJSON, "json", "", "Tool arguments as a JSON object")
	return cmd
}

func statusCmd(opts *options, u *ui) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gateway readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().readiness(cmd.Context())
			if body != nil {
				label := u.ok("[READY]")
				if err != nil {
					label = u.err("[NOT READY]")
				}
				fmt.Fprintln(cmd.OutOrStdout(), label, opts.baseURL)
				if werr := writeJSON(cmd, body); werr != nil {
					return werr
				}
			}
			return err
		},
	}
}

func writeJSON(cmd *cobra.Command, body []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		_, err = cmd.OutOrStdout().Write(body)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(cmd.OutOrStdout())
	return err
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
