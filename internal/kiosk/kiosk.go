// Package kiosk is a line-oriented console front end over the facade, for
// headless terminals and bench testing.  Each input line is one command:
//
//	EMP001 masuk          submit attendance (any accepted kind alias)
//	EMP001 pulang lembur  multi-word kinds are fine
//	open [seconds]        unlock
//	lock                  lock
//	status                show door state
package kiosk

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/igasar/doorlock/internal/doorlock/facade"
	"github.com/igasar/doorlock/internal/doorlock/types"
)

// Run processes commands from r until EOF or ctx is done.
func Run(ctx context.Context, r io.Reader, w io.Writer, f *facade.Facade, token string) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Fprintln(w, Handle(ctx, f, token, line))
	}
	return sc.Err()
}

// Handle executes one command line and returns the text to show.
func Handle(ctx context.Context, f *facade.Facade, token, line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}

	switch strings.ToLower(fields[0]) {
	case "open":
		var delay any
		if len(fields) > 1 {
			delay = fields[1]
		}
		resp, _ := f.OpenDoor(token, delay)
		return render(resp.Status, resp.Message)
	case "lock":
		resp, _ := f.LockDoor(token)
		return render(resp.Status, resp.Message)
	case "status":
		st := f.DoorStatus()
		if st.IsLocked {
			return fmt.Sprintf("[%s] door locked", st.GPIOMode)
		}
		return fmt.Sprintf("[%s] door unlocked until %s", st.GPIOMode, st.RelockAt)
	}

	if len(fields) < 2 {
		return render(facade.StatusError, "usage: <employee_code> <kind> | open [s] | lock | status")
	}
	resp, _ := f.SubmitAttendance(ctx, token, types.AttendanceRequest{
		EmployeeCode: fields[0],
		EventKind:    strings.Join(fields[1:], " "),
	})
	return render(resp.Status, resp.Message)
}

func render(status, msg string) string {
	return strings.ToUpper(status) + ": " + msg
}
