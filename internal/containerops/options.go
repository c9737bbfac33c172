// Package containerops wraps the `docker` CLI for the operations the
// session manager needs: container create/start/stop/rm/exec, network
// create/rm, and image inspect/pull. It intentionally shells out to the
// docker binary rather than linking a client library, mirroring the
// teacher's own `container` CLI wrapper.
package containerops

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// RunOptions are the flags docker accepts for `run`/`create` that this
// module actually exercises: process environment, TTY/interactive mode,
// user mapping, workdir, network attachment, mounts, and labels. This is
// a deliberately narrowed version of the apple-container flag set,
// carrying over only what a sidecar or agent container needs.
type RunOptions struct {
	// Env sets environment variables (format: key=value).
	Env map[string]string `flag:"--env"`
	// Interactive keeps stdin open even if not attached.
	Interactive bool `flag:"--interactive"`
	// TTY allocates a pseudo-TTY.
	TTY bool `flag:"--tty"`
	// User sets the in-container user (format: uid[:gid]), used to map
	// the host user in.
	User string `flag:"--user"`
	// WorkDir sets the initial working directory inside the container.
	WorkDir string `flag:"--workdir"`
	// Network attaches the container to the named network.
	Network string `flag:"--network"`
	// Detach runs the container and returns immediately.
	Detach bool `flag:"--detach"`
	// Name fixes the container's name instead of letting docker assign one.
	Name string `flag:"--name"`
	// Label adds a key=value label, used to tag every container with sid.
	Label map[string]string `flag:"--label"`
	// Mount adds a mount (format: type=<>,source=<>,target=<>,readonly).
	Mount []string `flag:"--mount"`
	// Remove removes the container automatically once it stops.
	Remove bool `flag:"--rm"`
}

// ExecOptions are the flags for `docker exec`.
type ExecOptions struct {
	// Interactive keeps stdin open.
	Interactive bool `flag:"--interactive"`
	// TTY allocates a pseudo-TTY; set only when the invoking tool's
	// tty-bit is set (spec §4.4.1 step 4).
	TTY bool `flag:"--tty"`
	// WorkDir sets the exec's working directory.
	WorkDir string `flag:"--workdir"`
	// Env forwards a curated environment set into the exec'd process.
	Env map[string]string `flag:"--env"`
}

// StopOptions are the flags for `docker stop`.
type StopOptions struct {
	// Time is the number of seconds to wait before killing the
	// container (docker's own grace window, separate from the
	// executor's cooperative-termination grace window).
	Time int `flag:"--time"`
}

// ToArgs flattens a flag-tagged struct into a docker CLI argument
// vector, in field declaration order. Slice fields repeat the flag once
// per element; map fields collapse to one comma-joined `k=v,...` flag;
// bool fields contribute only the flag itself when true; zero values are
// skipped unless the struct embeds another flag-tagged struct.
func ToArgs[T any](s *T) []string {
	if s == nil {
		s = new(T)
	}
	var ret []string
	st := reflect.TypeOf(*s)
	sv := reflect.ValueOf(*s)
	if st.Kind() == reflect.Pointer {
		sv = reflect.Indirect(sv)
		st = sv.Type()
	}
	for i := range st.NumField() {
		field := st.Field(i)
		fv := sv.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			fvi := fv.Interface()
			ret = append(ret, ToArgs(&fvi)...)
			continue
		}
		flagName, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}
		if fv.IsZero() {
			continue
		}
		switch field.Type.Kind() {
		case reflect.Bool:
			ret = append(ret, flagName)
		case reflect.Slice, reflect.Array:
			for i := 0; i < fv.Len(); i++ {
				ret = append(ret, flagName, fmt.Sprintf("%v", fv.Index(i)))
			}
		case reflect.Map:
			m := fv.Interface().(map[string]string)
			var pairs []string
			for _, k := range slices.Sorted(maps.Keys(m)) {
				pairs = append(pairs, fmt.Sprintf("%s=%s", k, m[k]))
			}
			ret = append(ret, flagName, strings.Join(pairs, ","))
		default:
			ret = append(ret, flagName, fmt.Sprintf("%v", fv.Interface()))
		}
	}
	return ret
}
