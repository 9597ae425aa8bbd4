package domain

import (
	"path"
	"slices"

	"go.trai.ch/zerr"
)

// TaskID identifies a build task.
type TaskID string

// Tasks.
const (
	TaskLint          TaskID = "lint"
	TaskCleanAll      TaskID = "clean:all"
	TaskCleanScripts  TaskID = "clean:scripts"
	TaskCleanStyles   TaskID = "clean:styles"
	TaskCleanIndex    TaskID = "clean:index"
	TaskCleanVendor   TaskID = "clean:vendor"
	TaskCleanIconfont TaskID = "clean:iconfont"
	TaskCleanHTML     TaskID = "clean:html"
	TaskCleanAssets   TaskID = "clean:assets"
	TaskScripts       TaskID = "scripts"
	TaskStyles        TaskID = "styles"
	TaskCopyIndex     TaskID = "copy:index"
	TaskCopyAssets    TaskID = "copy:assets"
	TaskCopyOriginals TaskID = "copy:originals"
	TaskVendor        TaskID = "bundle:vendor"
	TaskIconfont      TaskID = "iconfont"
)

// TaskKind groups tasks by how they run.
type TaskKind int

const (
	// KindPipeline tasks stream artifacts through transform steps.
	KindPipeline TaskKind = iota
	// KindClean tasks remove build output.
	KindClean
	// KindCopy tasks copy trees into the output unchanged.
	KindCopy
	// KindLint runs the external linter.
	KindLint
)

var taskKinds = map[TaskID]TaskKind{
	TaskLint:          KindLint,
	TaskCleanAll:      KindClean,
	TaskCleanScripts:  KindClean,
	TaskCleanStyles:   KindClean,
	TaskCleanIndex:    KindClean,
	TaskCleanVendor:   KindClean,
	TaskCleanIconfont: KindClean,
	TaskCleanHTML:     KindClean,
	TaskCleanAssets:   KindClean,
	TaskScripts:       KindPipeline,
	TaskStyles:        KindPipeline,
	TaskCopyIndex:     KindPipeline,
	TaskCopyAssets:    KindCopy,
	TaskCopyOriginals: KindCopy,
	TaskVendor:        KindPipeline,
	TaskIconfont:      KindPipeline,
}

// Kind returns how the task runs.
func (t TaskID) Kind() TaskKind {
	return taskKinds[t]
}

func (t TaskID) String() string {
	return string(t)
}

// ParseTaskID returns the task named s.
func ParseTaskID(s string) (TaskID, error) {
	t := TaskID(s)
	if _, ok := taskKinds[t]; !ok {
		return "", zerr.With(zerr.Wrap(ErrUnknownTask, ""), "task", s)
	}
	return t, nil
}

// CleanTasks returns every clean task in a stable order.
func CleanTasks() []TaskID {
	var out []TaskID
	for t, k := range taskKinds {
		if k == KindClean {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

// Stage is one step of a command. A stage with one task runs it alone; a
// stage with several runs them concurrently. Failures of an advisory stage
// are reported as warnings and never stop the command.
type Stage struct {
	Name     string
	Tasks    []TaskID
	Advisory bool
}

// Command is a top level build composition.
type Command string

// Commands.
const (
	CommandBuild      Command = "build"
	CommandDevBuild   Command = "dev-build"
	CommandWatchBuild Command = "watch-build"
)

// ParseCommand returns the command named s.
func ParseCommand(s string) (Command, error) {
	switch c := Command(s); c {
	case CommandBuild, CommandDevBuild, CommandWatchBuild:
		return c, nil
	default:
		return "", zerr.With(zerr.Wrap(ErrUnknownCommand, ""), "command", s)
	}
}

// Plan is the fixed composition of a command.
type Plan struct {
	Command     Command
	Environment Environment
	Stages      []Stage
}

// PlanFor returns the stages of cmd. The environment is chosen by the command
// and cannot be overridden.
func PlanFor(cmd Command) (Plan, error) {
	switch cmd {
	case CommandBuild:
		return Plan{
			Command:     cmd,
			Environment: EnvProduction,
			Stages: []Stage{
				{Name: "lint", Tasks: []TaskID{TaskLint}, Advisory: true},
				{Name: "clean", Tasks: []TaskID{TaskCleanAll}},
				{Name: "build", Tasks: []TaskID{
					TaskScripts, TaskStyles,
					TaskCopyIndex, TaskCopyAssets, TaskCopyOriginals,
					TaskVendor, TaskIconfont,
				}},
			},
		}, nil
	case CommandDevBuild, CommandWatchBuild:
		return Plan{
			Command:     cmd,
			Environment: EnvDevelopment,
			Stages: []Stage{
				{Name: "lint", Tasks: []TaskID{TaskLint}, Advisory: true},
				{Name: "clean", Tasks: []TaskID{TaskCleanScripts, TaskCleanStyles, TaskCleanIndex}},
				{Name: "build", Tasks: []TaskID{
					TaskScripts, TaskStyles,
					TaskCopyIndex, TaskCopyAssets, TaskCopyOriginals,
					TaskIconfont,
				}},
			},
		}, nil
	default:
		return Plan{}, zerr.With(zerr.Wrap(ErrUnknownCommand, ""), "command", cmd)
	}
}

// CleanPatterns returns the globs removed by a clean task, relative to the project root.
func CleanPatterns(p *Project, t TaskID) ([]string, error) {
	switch t {
	case TaskCleanAll:
		return []string{p.Dist}, nil
	case TaskCleanScripts:
		return []string{path.Join(p.Scripts.Dest, "**/*.js"), path.Join(p.Scripts.Dest, "**/*.map")}, nil
	case TaskCleanStyles:
		return []string{path.Join(p.Styles.Dest, "**/*.css"), path.Join(p.Styles.Dest, "**/*.map")}, nil
	case TaskCleanIndex:
		return []string{path.Join(p.Index.Dest, p.Index.Name)}, nil
	case TaskCleanVendor:
		return []string{p.Vendor.Dest}, nil
	case TaskCleanIconfont:
		return []string{path.Join(p.Icons.Dest, "**/*")}, nil
	case TaskCleanHTML:
		return []string{path.Join(p.Dist, "**/*.html")}, nil
	case TaskCleanAssets:
		return []string{path.Join(p.Assets.Dest, "**/*")}, nil
	default:
		return nil, zerr.With(zerr.Wrap(ErrUnknownTask, "not a clean task"), "task", t)
	}
}
