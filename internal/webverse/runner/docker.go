package runner

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/webverselabs/webverse/internal/log"
)

// hostPortRe finds host ports in docker ps output like "0.0.0.0:3000->80/tcp"
var hostPortRe = regexp.MustCompile(`:(\d+)->`)

// RunningProjects returns the set of compose project names with at
// least one running container, discovered via docker container labels.
func (r *Runner) RunningProjects(ctx context.Context) (map[string]bool, error) {
	cmd := exec.CommandContext(ctx, "docker", "ps",
		"--filter", "label=com.docker.compose.project",
		"--format", `{{.Label "com.docker.compose.project"}}`)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to list compose projects: %w", err)
	}

	projects := map[string]bool{}
	for _, line := range strings.Split(out.String(), "\n") {
		if p := strings.TrimSpace(line); p != "" {
			projects[p] = true
		}
	}
	return projects, nil
}

// ProjectRunning reports whether the given compose project has any
// running container. Used to verify the persisted runtime lock against
// the actual state of the outside world.
func (r *Runner) ProjectRunning(ctx context.Context, project string) (bool, error) {
	projects, err := r.RunningProjects(ctx)
	if err != nil {
		return false, err
	}
	return projects[project], nil
}

// UsedHostPorts returns the host ports currently bound by docker
// containers.
func (r *Runner) UsedHostPorts(ctx context.Context) (map[int]bool, error) {
	cmd := exec.CommandContext(ctx, "docker", "ps", "-a", "--format", "{{.Ports}}")

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to list docker ports: %w", err)
	}

	used := map[int]bool{}
	for _, line := range strings.Split(out.String(), "\n") {
		if line == "" {
			continue
		}
		for _, match := range hostPortRe.FindAllStringSubmatch(line, -1) {
			if len(match) == 2 {
				if port, err := strconv.Atoi(match[1]); err == nil {
					used[port] = true
				}
			}
		}
	}

	log.Debug("Found %d host ports bound by docker", len(used))
	return used, nil
}
