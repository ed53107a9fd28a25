package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/and161185/notekeeper/internal/convert"
	grpcserver "github.com/and161185/notekeeper/internal/server/grpc"
)

func newRegisterCmd(a *app) *cobra.Command {
	var username, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.call(cmd, "", grpcserver.MethodRegister, map[string]any{
				"username": username, "email": email, "password": password,
			})
			if err != nil {
				return err
			}
			cmd.Println(convert.String(out, "user_id"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "email address")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := a.call(cmd, "", grpcserver.MethodLogin, map[string]any{
				"username": username, "password": password,
			})
			if err != nil {
				return err
			}
			// a missing expiry is only a display hint
			exp, _ := convert.ParseTime(convert.String(out, "expires_at"))
			if err := saveToken(convert.String(out, "token"), exp); err != nil {
				return err
			}
			cmd.Println("ok")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tok, err := loadToken()
			if err != nil {
				return err
			}
			if _, err := a.call(cmd, tok, grpcserver.MethodLogout, nil); err != nil {
				return err
			}
			return removeToken()
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.authed(cmd, grpcserver.MethodWhoami, nil)
		},
	}
}

func newNoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "note", Short: "Manage notes"}

	var subject, title, body, file string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file != "" {
				b, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				body = string(b)
			}
			return a.authed(cmd, grpcserver.MethodCreateNote, map[string]any{
				"subject": subject, "title": title, "body": body,
			})
		},
	}
	add.Flags().StringVarP(&subject, "subject", "s", "", "subject tag")
	add.Flags().StringVarP(&title, "title", "t", "", "title")
	add.Flags().StringVarP(&body, "body", "b", "", "body text")
	add.Flags().StringVarP(&file, "file", "f", "", "read body from file, - for stdin")
	_ = add.MarkFlagRequired("subject")
	add.MarkFlagsMutuallyExclusive("body", "file")

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.authed(cmd, grpcserver.MethodGetNote, map[string]any{"id": args[0]})
		},
	}
	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.authed(cmd, grpcserver.MethodDeleteNote, map[string]any{"id": args[0]})
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
	}
	page := bindPageFlags(ls, "subject", "exact subject filter")
	ls.RunE = func(cmd *cobra.Command, _ []string) error {
		return a.authed(cmd, grpcserver.MethodListNotes, page.request())
	}

	cmd.AddCommand(add, get, rm, ls)
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Browse the user directory"}
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List users by username",
		Args:  cobra.NoArgs,
	}
	page := bindPageFlags(ls, "prefix", "username prefix filter")
	ls.RunE = func(cmd *cobra.Command, _ []string) error {
		return a.authed(cmd, grpcserver.MethodListUsers, page.request())
	}
	cmd.AddCommand(ls)
	return cmd
}

// authed calls method with the stored token and prints the reply.
func (a *app) authed(cmd *cobra.Command, method string, in map[string]any) error {
	tok, err := loadToken()
	if err != nil {
		return err
	}
	out, err := a.call(cmd, tok, method, in)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}

type pageFlags struct {
	filter     string
	perPage    int
	page       int
	next, back string
}

func bindPageFlags(cmd *cobra.Command, filterName, filterUsage string) *pageFlags {
	p := &pageFlags{}
	f := cmd.Flags()
	f.StringVar(&p.filter, filterName, "", filterUsage)
	f.IntVar(&p.perPage, "per-page", 0, "items per page (server default when 0)")
	f.IntVar(&p.page, "page", 0, "page number to start at")
	f.StringVar(&p.next, "next", "", "next_page cursor from a previous listing")
	f.StringVar(&p.back, "back", "", "back_page cursor from a previous listing")
	cmd.MarkFlagsMutuallyExclusive("next", "back")
	return p
}

func (p *pageFlags) request() map[string]any {
	m := map[string]any{}
	if p.filter != "" {
		m[convert.FieldSubject] = p.filter
	}
	if p.perPage != 0 {
		m[convert.FieldItemsPerPage] = p.perPage
	}
	if p.page != 0 {
		m[convert.FieldPage] = p.page
	}
	if p.next != "" {
		m[convert.FieldNextPage] = p.next
	}
	if p.back != "" {
		m[convert.FieldBackPage] = p.back
	}
	return m
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}
