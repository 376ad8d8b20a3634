package runner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	wverrors "github.com/webverselabs/webverse/internal/webverse/errors"
	"github.com/webverselabs/webverse/internal/webverse/lab"
	"github.com/webverselabs/webverse/internal/log"
)

// loadEnvFile loads KEY=VALUE pairs from a .env file. The file is
// optional; a missing file yields an empty map.
func loadEnvFile(path string) map[string]string {
	envVars := make(map[string]string)

	//nolint:gosec // G304: Reading compose env files is intentional
	file, err := os.Open(path)
	if err != nil {
		return envVars
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.Error("Failed to close env file %s: %v", path, cerr)
		}
	}()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		envVars[key] = value
	}
	return envVars
}

// expandEnvVars expands ${VAR} and $VAR using the provided map first,
// falling back to the process environment.
func expandEnvVars(s string, envMap map[string]string) string {
	return os.Expand(s, func(key string) string {
		if val, ok := envMap[key]; ok {
			return val
		}
		return os.Getenv(key)
	})
}

// ComposeHostPorts parses the compose file and returns the host ports
// its services want to bind. Container-only mappings and expose-only
// entries are ignored since they claim no host port.
func ComposeHostPorts(composePath string) ([]int, error) {
	//nolint:gosec // G304: Reading lab compose files is intentional
	data, err := os.ReadFile(composePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %s: %w", composePath, err)
	}

	var compose map[string]interface{}
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return nil, fmt.Errorf("failed to parse compose file %s: %w", composePath, err)
	}

	envVars := loadEnvFile(filepath.Join(filepath.Dir(composePath), ".env"))

	var ports []int
	services, ok := compose["services"].(map[interface{}]interface{})
	if !ok {
		return ports, nil
	}

	for _, serviceData := range services {
		serviceMap, ok := serviceData.(map[interface{}]interface{})
		if !ok {
			continue
		}
		portsList, ok := serviceMap["ports"].([]interface{})
		if !ok {
			continue
		}
		for _, port := range portsList {
			portStr := expandEnvVars(fmt.Sprintf("%v", port), envVars)
			if host, ok := hostPortOf(portStr); ok {
				ports = append(ports, host)
			}
		}
	}

	sort.Ints(ports)
	return ports, nil
}

// hostPortOf extracts the host port from a compose mapping. Handles
// "host:container", "ip:host:container" and protocol suffixes;
// container-only entries report false.
func hostPortOf(mapping string) (int, bool) {
	mapping = strings.TrimSpace(mapping)
	if i := strings.Index(mapping, "/"); i >= 0 {
		mapping = mapping[:i]
	}
	parts := strings.Split(mapping, ":")
	if len(parts) < 2 {
		return 0, false
	}
	// Host port is always second from the end
	host := parts[len(parts)-2]
	port, err := strconv.Atoi(host)
	if err != nil || port <= 0 {
		return 0, false
	}
	return port, true
}

// Precheck verifies that the host ports a lab needs look free before
// burning a long bring-up attempt on an unwinnable precondition. Best
// effort: if docker state cannot be read, the check is skipped.
func (r *Runner) Precheck(ctx context.Context, l *lab.Lab) error {
	wanted, err := ComposeHostPorts(l.ComposePath())
	if err != nil {
		log.Debug("Port precheck skipped for %s: %v", l.ID, err)
		return nil
	}
	if len(wanted) == 0 {
		return nil
	}

	used, err := r.UsedHostPorts(ctx)
	if err != nil {
		log.Debug("Port precheck skipped for %s: %v", l.ID, err)
		return nil
	}

	var conflicts []string
	for _, p := range wanted {
		if used[p] {
			conflicts = append(conflicts, strconv.Itoa(p))
		}
	}
	if len(conflicts) > 0 {
		return wverrors.Wrapf(wverrors.ErrPrecondition,
			"ports already in use: %s", strings.Join(conflicts, ", "))
	}
	return nil
}
