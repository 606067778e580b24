// Package cli implements the interactive operator client. It covers both
// sides of the protocol: the owner commands (heartbeat, credential, vault,
// trustees) and the trustee commands (pending locks, unlock).
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/lifesignal/lifesignal/internal/client/api"
	"github.com/lifesignal/lifesignal/internal/common"
)

type App struct {
	client *api.Client
	out    *bufio.Writer
	in     *bufio.Reader
}

func NewApp(serverURL string) *App {
	return &App{
		client: api.NewClient(serverURL),
		out:    bufio.NewWriter(os.Stdout),
		in:     bufio.NewReader(os.Stdin),
	}
}

type command struct {
	name string
	help string
	run  func(context.Context) error
}

func (a *App) commands() []command {
	return []command{
		{"login", "open a session", a.login},
		{"status", "show liveness status", a.status},
		{"heartbeat", "check in", a.heartbeat},
		{"credential", "enroll or replace the credential", a.setCredential},
		{"verify", "run a credential check", a.verify},
		{"threshold", "change the expiry window", a.threshold},
		{"invite", "print the reference a trustee accepts with", a.invite},
		{"trustee-accept", "accept an owner's invitation", a.trusteeAccept},
		{"trustee-list", "list trustees", a.trusteeList},
		{"trustee-revoke", "revoke a trustee", a.trusteeRevoke},
		{"vault-add", "store a text entry", a.vaultAdd},
		{"vault-list", "list vault entries", a.vaultList},
		{"reveal", "decrypt one entry", a.reveal},
		{"locks", "list locked owners you guard", a.locks},
		{"unlock", "unlock an owner with a recovery key", a.unlock},
		{"help", "print this list", a.help},
	}
}

// Run executes a single named command, prompting for whatever it needs.
func (a *App) Run(ctx context.Context, name string) error {
	defer a.out.Flush()

	for _, cmd := range a.commands() {
		if cmd.name == name {
			return cmd.run(ctx)
		}
	}
	a.help(ctx)
	return fmt.Errorf("unknown command %q", name)
}

func (a *App) help(context.Context) error {
	cmds := a.commands()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].name < cmds[j].name })
	for _, cmd := range cmds {
		fmt.Fprintf(a.out, "  %-16s %s\n", cmd.name, cmd.help)
	}
	return nil
}

// login opens a session and prints the token so other commands can pick it
// up through the LIFESIGNAL_TOKEN environment variable.
func (a *App) login(ctx context.Context) error {
	id, err := GetSimpleText(a.in, "Principal id (email)", a.out)
	if err != nil {
		return err
	}
	a.out.Flush()
	name, err := GetSimpleText(a.in, "Display name", a.out)
	if err != nil {
		return err
	}
	a.out.Flush()

	token, err := a.client.OpenSession(ctx, id, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "export LIFESIGNAL_TOKEN=%s\n", token)
	return nil
}

// withToken installs the session token from the environment.
func (a *App) withToken() error {
	token := os.Getenv("LIFESIGNAL_TOKEN")
	if token == "" {
		return fmt.Errorf("no session: run login first and export LIFESIGNAL_TOKEN")
	}
	a.client.SetToken(token)
	return nil
}

func (a *App) status(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	st, err := a.client.Status(ctx)
	if err != nil {
		return err
	}
	for _, k := range []string{"principal_id", "liveness_status", "threshold_hours", "trustee_count", "credential_set", "last_heartbeat"} {
		fmt.Fprintf(a.out, "%-16s %v\n", k, st[k])
	}
	return nil
}

func (a *App) heartbeat(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	if err := a.client.Heartbeat(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "checked in")
	return nil
}

func (a *App) setCredential(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}

	current, err := GetCredential(a.out, "Current credential (empty on first enrollment)")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)
	a.out.Flush()

	credential, err := GetCredential(a.out, "New credential")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(credential)
	a.out.Flush()

	if err := a.client.SetCredential(ctx, current, credential); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "credential enrolled")
	return nil
}

func (a *App) verify(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}

	credential, err := GetCredential(a.out, "Credential")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(credential)
	a.out.Flush()

	result, err := a.client.VerifyCredential(ctx, credential)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "outcome: %v\n", result["outcome"])
	if v, ok := result["remaining_attempts"]; ok {
		fmt.Fprintf(a.out, "remaining attempts: %v\n", v)
	}
	if v, ok := result["recovery_key"]; ok {
		fmt.Fprintf(a.out, "recovery key: %v\n%v\n", v, result["guidance"])
	}
	return nil
}

func (a *App) threshold(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	text, err := GetSimpleText(a.in, "Expiry window in hours (e.g. 24, 72, 168)", a.out)
	if err != nil {
		return err
	}
	hours, err := strconv.Atoi(text)
	if err != nil {
		return fmt.Errorf("not a number: %q", text)
	}
	return a.client.SetThreshold(ctx, hours)
}

// invite prints the reference an owner hands to a prospective trustee: the
// owner's own principal id, which the trustee feeds to trustee-accept.
func (a *App) invite(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	st, err := a.client.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "share this with your trustee, they accept with: trustee-accept %v\n", st["principal_id"])
	return nil
}

func (a *App) trusteeAccept(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	id, err := GetSimpleText(a.in, "Owner principal id (from the invitation)", a.out)
	if err != nil {
		return err
	}
	a.out.Flush()
	name, err := GetSimpleText(a.in, "Your display name", a.out)
	if err != nil {
		return err
	}
	return a.client.AcceptInvite(ctx, id, name)
}

func (a *App) trusteeList(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	links, err := a.client.ListTrustees(ctx)
	if err != nil {
		return err
	}
	for _, link := range links {
		fmt.Fprintf(a.out, "%v\t%v\n", link["trustee_id"], link["display_name"])
	}
	return nil
}

func (a *App) trusteeRevoke(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	id, err := GetSimpleText(a.in, "Trustee id to revoke", a.out)
	if err != nil {
		return err
	}
	return a.client.RevokeTrustee(ctx, id)
}

func (a *App) vaultAdd(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	content, err := GetMultiline(a.in, "Entry text", a.out)
	if err != nil {
		return err
	}
	a.out.Flush()
	recipients, err := GetSimpleText(a.in, "Recipient trustee ids, comma separated", a.out)
	if err != nil {
		return err
	}

	var ids []string
	for _, id := range strings.Split(recipients, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return a.client.AddEntry(ctx, "text", content, "", ids)
}

func (a *App) vaultList(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	entries, err := a.client.ListEntries(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%v\t%v\t%v\t-> %v\n", e["id"], e["content_kind"], e["preview"], e["recipient_ids"])
	}
	return nil
}

func (a *App) reveal(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	text, err := GetSimpleText(a.in, "Entry id", a.out)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("not an id: %q", text)
	}

	entry, err := a.client.RevealEntry(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%v\n", entry["content"])
	if url, ok := entry["download_url"]; ok {
		fmt.Fprintf(a.out, "download: %v\n", url)
	}
	return nil
}

func (a *App) locks(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	locked, err := a.client.LockRequests(ctx)
	if err != nil {
		return err
	}
	if len(locked) == 0 {
		fmt.Fprintln(a.out, "no locked owners")
		return nil
	}
	for _, p := range locked {
		fmt.Fprintf(a.out, "%v\t%v\n", p["principal_id"], p["display_name"])
	}
	return nil
}

func (a *App) unlock(ctx context.Context) error {
	if err := a.withToken(); err != nil {
		return err
	}
	id, err := GetSimpleText(a.in, "Owner principal id", a.out)
	if err != nil {
		return err
	}
	a.out.Flush()
	key, err := GetSimpleText(a.in, "Recovery key (read to you by the owner)", a.out)
	if err != nil {
		return err
	}

	outcome, err := a.client.Unlock(ctx, id, key)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "outcome: %s\n", outcome)
	return nil
}
