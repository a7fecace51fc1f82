package notes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ridge/quarry"
	"github.com/ridge/quarry/query"
	"github.com/ridge/quarry/store"
	"github.com/ridge/quarry/tlog"
	"go.uber.org/zap"
)

// ErrUsage is returned for malformed command lines
var ErrUsage = errors.New("usage error")

type usageError struct {
	msg string
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

// ExitCode implements run.WithExitCode
func (e usageError) ExitCode() int {
	return 2
}

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// Config contains the parameters of a command
type Config struct {
	// DB is the path of the journal. The notes are kept in memory only if
	// it is empty.
	DB string

	// Folder limits list, count and watch to one folder, and is the folder
	// of added notes
	Folder string

	// Rank is the rank of added notes
	Rank int
}

type command func(ctx context.Context, svc *quarry.Service, config Config, args []string, out io.Writer) error

var commands = map[string]command{
	"add":   add,
	"list":  list,
	"count": count,
	"done":  done,
	"rm":    remove,
	"watch": watch,
}

// Run opens the notes store and runs the command given by args
func Run(ctx context.Context, config Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usagef("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return usagef("unknown command %q", args[0])
	}

	st, err := store.Open(ctx, store.Config{Kinds: Kinds, Path: config.DB})
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			tlog.Get(ctx).Error("Failed to close store", zap.Error(err))
		}
	}()

	svc := quarry.New(ctx, quarry.Config{Store: st})
	defer svc.Close()

	return cmd(ctx, svc, config, args[1:], out)
}

// add adds a note, unless the folder has one with the same title
func add(ctx context.Context, svc *quarry.Service, config Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usagef("add takes exactly one title")
	}
	req := query.NewRequest[Note]().Filtered(query.And(Folder.Eq(config.Folder), Title.Eq(args[0])))
	n, created, err := quarry.FirstOrCreate(ctx, svc, req)
	if err != nil {
		return err
	}
	if created {
		n.Title = args[0]
		n.Folder = config.Folder
		n.Rank = config.Rank
		if err := svc.Write(ctx, func(s *quarry.Session) error {
			s.Insert(n)
			return nil
		}); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(out, n)
	return err
}

func list(ctx context.Context, svc *quarry.Service, config Config, args []string, out io.Writer) error {
	if len(args) != 0 {
		return usagef("list takes no arguments")
	}
	notes, err := quarry.Execute(ctx, svc, List(config.Folder))
	if err != nil {
		return err
	}
	for _, n := range notes {
		if _, err := fmt.Fprintln(out, n); err != nil {
			return err
		}
	}
	return nil
}

func count(ctx context.Context, svc *quarry.Service, config Config, args []string, out io.Writer) error {
	if len(args) != 0 {
		return usagef("count takes no arguments")
	}
	open, err := quarry.Count(ctx, svc, List(config.Folder).Filtered(Done.Eq(false)))
	if err != nil {
		return err
	}
	total, err := quarry.Count(ctx, svc, List(config.Folder))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%d open, %d total\n", open, total)
	return err
}

func done(ctx context.Context, svc *quarry.Service, _ Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usagef("done takes one or more note ids")
	}
	for _, id := range args {
		if err := svc.Insert(ctx, Completion(id)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%d done\n", len(args))
	return err
}

func remove(ctx context.Context, svc *quarry.Service, _ Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usagef("rm takes one or more note ids")
	}
	for _, id := range args {
		if err := svc.Delete(ctx, Ref(id)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "%d removed\n", len(args))
	return err
}

// watch prints the notes, then every change to them until ctx is closed or
// the limit of changes given as argument is reached
func watch(ctx context.Context, svc *quarry.Service, config Config, args []string, out io.Writer) error {
	limit := -1
	switch len(args) {
	case 0:
	case 1:
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return usagef("invalid number of changes %q", args[0])
		}
		limit = n
	default:
		return usagef("watch takes at most one argument")
	}

	obs, err := quarry.Observe(svc, List(config.Folder))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var failure error
	seen := 0
	handler := func(ev quarry.Event[Note]) {
		switch ev := ev.(type) {
		case quarry.Initial[Note]:
			for _, n := range ev.Objects {
				fmt.Fprintln(out, n)
			}
		case quarry.Delta[Note]:
			for _, i := range ev.Deletions {
				fmt.Fprintf(out, "- %d\n", i)
			}
			for _, row := range ev.Insertions {
				fmt.Fprintf(out, "+ %d %s\n", row.Index, row.Object)
			}
			for _, row := range ev.Modifications {
				fmt.Fprintf(out, "* %d %s\n", row.Index, row.Object)
			}
			seen++
		case quarry.Failure[Note]:
			failure = ev.Err
			cancel()
			return
		}
		if limit >= 0 && seen >= limit {
			cancel()
		}
	}
	if err := obs.Observe(ctx, handler); err != nil {
		return err
	}
	<-ctx.Done()
	obs.Stop()
	return failure
}
