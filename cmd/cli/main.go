// Command nk is a CLI client for the NoteKeeper service.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	grpcserver "github.com/and161185/notekeeper/internal/server/grpc"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// app carries global flags and the connection factory shared by subcommands.
type app struct {
	addr      string
	caPath    string
	insecure  bool
	plaintext bool
	timeout   time.Duration

	// dial is replaced in tests.
	dial func(ctx context.Context) (grpc.ClientConnInterface, func(), error)
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "nk",
		Short:        "NoteKeeper command-line client",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.addr, "addr", "localhost:8443", "server address")
	pf.StringVar(&a.caPath, "cacert", "", "CA certificate (PEM)")
	pf.BoolVar(&a.insecure, "insecure", false, "skip certificate verification (dev)")
	pf.BoolVar(&a.plaintext, "plaintext", false, "connect without TLS (dev)")
	pf.DurationVar(&a.timeout, "timeout", 30*time.Second, "per-command timeout")

	root.AddCommand(
		newVersionCmd(),
		newRegisterCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newNoteCmd(a),
		newUsersCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("nk %s (%s)\n", version, buildDate)
		},
	}
}

// call dials and invokes method, flattening gRPC statuses into plain errors.
func (a *app) call(cmd *cobra.Command, token, method string, in map[string]any) (*structpb.Struct, error) {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	dial := a.dial
	if dial == nil {
		dial = a.dialNetwork
	}
	cc, closeConn, err := dial(ctx)
	if err != nil {
		return nil, err
	}
	defer closeConn()

	out, err := grpcserver.NewClient(cc, token).Call(ctx, method, in)
	if err != nil {
		if st, ok := status.FromError(err); ok {
			return nil, fmt.Errorf("%s: %s", st.Code(), st.Message())
		}
		return nil, err
	}
	return out, nil
}

func (a *app) dialNetwork(context.Context) (grpc.ClientConnInterface, func(), error) {
	creds, err := a.transportCreds()
	if err != nil {
		return nil, nil, err
	}
	cc, err := grpc.NewClient(a.addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, nil, err
	}
	return cc, func() { _ = cc.Close() }, nil
}

func (a *app) transportCreds() (credentials.TransportCredentials, error) {
	switch {
	case a.plaintext:
		return insecure.NewCredentials(), nil
	case a.insecure:
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil
	case a.caPath == "":
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(a.caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

func printJSON(w io.Writer, s *structpb.Struct) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s.AsMap())
}
