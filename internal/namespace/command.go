package namespace

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/fixture-ctl/internal/logging"
	"github.com/firefly-engineering/fixture-ctl/internal/system"
)

// CommandBackend implements Backend by running external tools configured
// as shell-quoted templates.
type CommandBackend struct {
	templates CommandConfig
	exec      system.CommandExecutor
}

// NewCommandBackend creates a backend from templates. The required
// templates (exists, backup, restore, drop, tables) must be set, and every
// template must parse.
func NewCommandBackend(templates CommandConfig, exec system.CommandExecutor) (*CommandBackend, error) {
	if missing := templates.Required(); len(missing) > 0 {
		return nil, fmt.Errorf("command backend is missing templates: %s", strings.Join(missing, ", "))
	}
	for name, tmpl := range templates.all() {
		if tmpl == "" {
			continue
		}
		if _, err := shellquote.Split(tmpl); err != nil {
			return nil, fmt.Errorf("invalid %s template %q: %w", name, tmpl, err)
		}
	}
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &CommandBackend{templates: templates, exec: exec}, nil
}

func (c CommandConfig) all() map[string]string {
	return map[string]string{
		"exists":  c.Exists,
		"create":  c.Create,
		"backup":  c.Backup,
		"restore": c.Restore,
		"unmount": c.Unmount,
		"drop":    c.Drop,
		"tables":  c.Tables,
		"count":   c.Count,
		"version": c.Version,
	}
}

// Name returns the backend identifier
func (b *CommandBackend) Name() string {
	return "command"
}

// exitCoder matches *exec.ExitError without depending on os/exec.
type exitCoder interface {
	ExitCode() int
}

// CommandError carries the output of a failed template command.
type CommandError struct {
	Op      string
	Command string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s command failed (%s): %s: %v", e.Op, e.Command, e.Output, e.Err)
	}
	return fmt.Sprintf("%s command failed (%s): %v", e.Op, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// render splits the template and substitutes placeholders per argument, so
// values containing spaces stay single arguments.
func render(tmpl string, vars map[string]string) ([]string, error) {
	args, err := shellquote.Split(tmpl)
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command template")
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	r := strings.NewReplacer(pairs...)
	for i, a := range args {
		args[i] = r.Replace(a)
	}
	return args, nil
}

func (b *CommandBackend) run(ctx context.Context, op, tmpl string, vars map[string]string) ([]byte, error) {
	if tmpl == "" {
		return nil, fmt.Errorf("%s template not configured", op)
	}
	args, err := render(tmpl, vars)
	if err != nil {
		return nil, fmt.Errorf("invalid %s template: %w", op, err)
	}

	line := shellquote.Join(args...)
	logging.Debug("running namespace command", "op", op, "command", line)

	out, err := b.exec.Execute(ctx, args[0], args[1:]...)
	if err != nil {
		return out, &CommandError{
			Op:      op,
			Command: line,
			Output:  strings.TrimSpace(string(out)),
			Err:     err,
		}
	}
	return out, nil
}

// Exists runs the exists template. Exit status zero means present, any
// other exit status means absent; failures to run the tool are errors.
func (b *CommandBackend) Exists(ctx context.Context, namespace string) (bool, error) {
	_, err := b.run(ctx, "exists", b.templates.Exists, map[string]string{"namespace": namespace})
	if err == nil {
		return true, nil
	}
	var ec exitCoder
	if errors.As(err, &ec) && ec.ExitCode() > 0 {
		return false, nil
	}
	return false, err
}

// Create runs the create template.
func (b *CommandBackend) Create(ctx context.Context, namespace string) error {
	_, err := b.run(ctx, "create", b.templates.Create, map[string]string{"namespace": namespace})
	return err
}

// Backup runs the backup template.
func (b *CommandBackend) Backup(ctx context.Context, namespace, snapshotPath string) error {
	_, err := b.run(ctx, "backup", b.templates.Backup, map[string]string{
		"namespace": namespace,
		"snapshot":  snapshotPath,
	})
	return err
}

// Mount runs the restore template.
func (b *CommandBackend) Mount(ctx context.Context, namespace, snapshotPath string) error {
	_, err := b.run(ctx, "restore", b.templates.Restore, map[string]string{
		"namespace": namespace,
		"snapshot":  snapshotPath,
	})
	return err
}

// Unmount runs the unmount template.
func (b *CommandBackend) Unmount(ctx context.Context, namespace string) error {
	_, err := b.run(ctx, "unmount", b.templates.Unmount, map[string]string{"namespace": namespace})
	return err
}

// Drop runs the drop template.
func (b *CommandBackend) Drop(ctx context.Context, namespace string) error {
	_, err := b.run(ctx, "drop", b.templates.Drop, map[string]string{"namespace": namespace})
	return err
}

// tableRow is one parsed line of tables output.
type tableRow struct {
	name     string
	count    int64
	hasCount bool
}

func (b *CommandBackend) listTables(ctx context.Context, namespace string) ([]tableRow, error) {
	out, err := b.run(ctx, "tables", b.templates.Tables, map[string]string{"namespace": namespace})
	if err != nil {
		return nil, err
	}
	return parseTables(out)
}

// parseTables reads "<table>\t<row count>" lines. The count column is
// optional; blank lines are skipped.
func parseTables(out []byte) ([]tableRow, error) {
	var rows []tableRow
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		row := tableRow{name: strings.TrimSpace(fields[0])}
		if len(fields) > 1 {
			n, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid row count in tables output %q: %w", line, err)
			}
			row.count = n
			row.hasCount = true
		}
		rows = append(rows, row)
	}
	return rows, scanner.Err()
}

// Tables runs the tables template and returns the first column.
func (b *CommandBackend) Tables(ctx context.Context, namespace string) ([]string, error) {
	rows, err := b.listTables(ctx, namespace)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.name
	}
	return names, nil
}

// CountRows runs the count template when configured, otherwise reads the
// count column of the tables output.
func (b *CommandBackend) CountRows(ctx context.Context, namespace, table string) (int64, error) {
	if err := CheckTableName(table); err != nil {
		return 0, err
	}

	if b.templates.Count != "" {
		out, err := b.run(ctx, "count", b.templates.Count, map[string]string{
			"namespace": namespace,
			"table":     table,
		})
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(string(out)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid count output for %s.%s: %w", namespace, table, err)
		}
		return n, nil
	}

	rows, err := b.listTables(ctx, namespace)
	if err != nil {
		return 0, err
	}
	for _, r := range rows {
		if r.name != table {
			continue
		}
		if !r.hasCount {
			return 0, fmt.Errorf("tables output has no row count for %s (configure a count template)", table)
		}
		return r.count, nil
	}
	return 0, fmt.Errorf("table %s not found in %s", table, namespace)
}

// EngineVersion runs the version template.
func (b *CommandBackend) EngineVersion(ctx context.Context) (string, error) {
	out, err := b.run(ctx, "version", b.templates.Version, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

var _ Backend = (*CommandBackend)(nil)
