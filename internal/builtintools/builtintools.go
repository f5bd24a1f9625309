// Package builtintools registers the concrete, always-available tools
// spec.md's §7/§8 examples assume but its abstract C1/C2 components do
// not themselves define: file read/write/edit, a shallow directory
// listing, a content search, and a guarded shell. Grounded on
// jholhewres-goclaw's pkg/devclaw/copilot/system_tools.go
// (registerFileTools/registerBashTool) for the tool shapes and
// tool_guard.go's compileDangerousPatterns for the dangerous-command
// regex list spec.md §8 names verbatim (`rm -rf /`, `sudo …`, `mkfs`,
// `dd if=`, `shutdown`).
package builtintools

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/forgeloop/agentcore/internal/tools"
)

// MaxReadBytes bounds how much of a file read_file returns, mirroring the
// teacher's 100KB read ceiling.
const MaxReadBytes = 100_000

// DefaultShellTimeout bounds how long run_shell waits before the command
// is killed, per spec.md §5's subprocess guard-rail note.
const DefaultShellTimeout = 120 * time.Second

// dangerousPatterns are rejected regardless of approval mode, per
// spec.md §8 ("Dangerous-pattern guard in the shell tool rejects
// `rm -rf /`, `sudo …`, `mkfs`, `dd if=`, and `shutdown` invocations").
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\brm\s+(-[a-zA-Z]*f[a-zA-Z]*\s+)?/(\s|$)`),
	regexp.MustCompile(`(?i)\bsudo\b`),
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bdd\s+.*if=`),
	regexp.MustCompile(`(?i)\bshutdown\b`),
}

func isDangerous(command string) (bool, string) {
	for _, pat := range dangerousPatterns {
		if pat.MatchString(command) {
			return true, pat.String()
		}
	}
	return false, ""
}

// Register installs the built-in tool set into registry, rooted at
// workspaceRoot for relative path resolution.
func Register(registry *tools.Registry, workspaceRoot string) error {
	for _, d := range []tools.Descriptor{
		readFileTool(workspaceRoot),
		writeFileTool(workspaceRoot),
		editFileTool(workspaceRoot),
		listDirectoryTool(workspaceRoot),
		searchFilesTool(workspaceRoot),
		runShellTool(workspaceRoot),
	} {
		if err := registry.Register(d.Name, d); err != nil {
			return fmt.Errorf("builtintools: register %s: %w", d.Name, err)
		}
	}
	return nil
}

func resolvePath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func readFileTool(root string) tools.Descriptor {
	return tools.Descriptor{
		Name:        "read_file",
		Description: "Read the contents of a file. Accepts absolute or workspace-relative paths.",
		AutoSafe:    true,
		Schema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.ParameterSchema{
				"path": {Type: "string", Description: "File path, absolute or relative to the workspace root."},
			},
			Required: []string{"path"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			data, err := os.ReadFile(resolvePath(root, path))
			if err != nil {
				return "", fmt.Errorf("reading file: %w", err)
			}
			text := string(data)
			if len(text) > MaxReadBytes {
				text = text[:MaxReadBytes] + "\n... [truncated]"
			}
			return text, nil
		},
	}
}

func writeFileTool(root string) tools.Descriptor {
	return tools.Descriptor{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories and overwriting any existing content.",
		AutoSafe:    false,
		Schema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.ParameterSchema{
				"path":    {Type: "string", Description: "File path, absolute or relative to the workspace root."},
				"content": {Type: "string", Description: "Content to write."},
			},
			Required: []string{"path", "content"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			if path == "" {
				return "", fmt.Errorf("path is required")
			}
			full := resolvePath(root, path)
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				return "", fmt.Errorf("creating parent directories: %w", err)
			}
			if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
				return "", fmt.Errorf("writing file: %w", err)
			}
			return fmt.Sprintf("wrote %d bytes to %s", len(content), path), nil
		},
	}
}

func editFileTool(root string) tools.Descriptor {
	return tools.Descriptor{
		Name:        "edit_file",
		Description: "Replace the first occurrence of old_text with new_text in a file.",
		AutoSafe:    false,
		Schema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.ParameterSchema{
				"path":     {Type: "string", Description: "File path, absolute or relative to the workspace root."},
				"old_text": {Type: "string", Description: "Exact text to replace."},
				"new_text": {Type: "string", Description: "Replacement text."},
			},
			Required: []string{"path", "old_text", "new_text"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			oldText, _ := args["old_text"].(string)
			newText, _ := args["new_text"].(string)
			if path == "" || oldText == "" {
				return "", fmt.Errorf("path and old_text are required")
			}
			full := resolvePath(root, path)
			data, err := os.ReadFile(full)
			if err != nil {
				return "", fmt.Errorf("reading file: %w", err)
			}
			content := string(data)
			if !strings.Contains(content, oldText) {
				return "", fmt.Errorf("old_text not found in %s", path)
			}
			updated := strings.Replace(content, oldText, newText, 1)
			if err := os.WriteFile(full, []byte(updated), 0o644); err != nil {
				return "", fmt.Errorf("writing file: %w", err)
			}
			return fmt.Sprintf("edited %s", path), nil
		},
	}
}

func listDirectoryTool(root string) tools.Descriptor {
	return tools.Descriptor{
		Name:        "list_directory",
		Description: "List the immediate entries of a directory, directories suffixed with '/'.",
		AutoSafe:    true,
		Schema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.ParameterSchema{
				"path": {Type: "string", Description: "Directory path, absolute or relative to the workspace root. Defaults to the workspace root."},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			full := root
			if path != "" {
				full = resolvePath(root, path)
			}
			entries, err := os.ReadDir(full)
			if err != nil {
				return "", fmt.Errorf("listing directory: %w", err)
			}
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				name := e.Name()
				if e.IsDir() {
					name += "/"
				}
				names = append(names, name)
			}
			sort.Strings(names)
			return strings.Join(names, "\n"), nil
		},
	}
}

func searchFilesTool(root string) tools.Descriptor {
	return tools.Descriptor{
		Name:        "search_files",
		Description: "Search text files under a directory for a literal substring, returning matching file:line:text entries.",
		AutoSafe:    true,
		Schema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.ParameterSchema{
				"query": {Type: "string", Description: "Literal substring to search for."},
				"path":  {Type: "string", Description: "Directory to search under. Defaults to the workspace root."},
			},
			Required: []string{"query"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return "", fmt.Errorf("query is required")
			}
			path, _ := args["path"].(string)
			full := root
			if path != "" {
				full = resolvePath(root, path)
			}

			var matches []string
			const maxMatches = 200
			err := filepath.Walk(full, func(p string, info os.FileInfo, err error) error {
				if err != nil || info.IsDir() || len(matches) >= maxMatches {
					return nil
				}
				f, openErr := os.Open(p)
				if openErr != nil {
					return nil
				}
				defer f.Close()
				scanner := bufio.NewScanner(f)
				scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
				lineNo := 0
				for scanner.Scan() {
					lineNo++
					if strings.Contains(scanner.Text(), query) {
						rel, _ := filepath.Rel(root, p)
						matches = append(matches, fmt.Sprintf("%s:%d:%s", rel, lineNo, strings.TrimSpace(scanner.Text())))
						if len(matches) >= maxMatches {
							break
						}
					}
				}
				return nil
			})
			if err != nil {
				return "", fmt.Errorf("searching files: %w", err)
			}
			if len(matches) == 0 {
				return "no matches", nil
			}
			return strings.Join(matches, "\n"), nil
		},
	}
}

func runShellTool(root string) tools.Descriptor {
	return tools.Descriptor{
		Name:        "run_shell",
		Description: "Run a shell command in the workspace root and return its combined output.",
		AutoSafe:    false,
		Schema: tools.Schema{
			Type: "object",
			Properties: map[string]tools.ParameterSchema{
				"command": {Type: "string", Description: "Shell command to execute."},
			},
			Required: []string{"command"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			command, _ := args["command"].(string)
			if command == "" {
				return "", fmt.Errorf("command is required")
			}
			if dangerous, pattern := isDangerous(command); dangerous {
				return "", fmt.Errorf("command rejected by dangerous-pattern guard (%s)", pattern)
			}

			cmdCtx, cancel := context.WithTimeout(ctx, DefaultShellTimeout)
			defer cancel()

			cmd := exec.CommandContext(cmdCtx, "sh", "-c", command)
			cmd.Dir = root
			var out bytes.Buffer
			cmd.Stdout = &out
			cmd.Stderr = &out

			err := cmd.Run()
			output := out.String()
			if len(output) > tools.DefaultOutputTruncateChars {
				output = output[:tools.DefaultOutputTruncateChars] + "\n... [truncated]"
			}
			if err != nil {
				if cmdCtx.Err() != nil {
					return "", fmt.Errorf("command timed out after %s", DefaultShellTimeout)
				}
				return fmt.Sprintf("exit error: %v\n%s", err, output), nil
			}
			return output, nil
		},
	}
}
