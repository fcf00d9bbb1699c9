package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilePath ensures the path is within the allowed base directory
// This prevents directory traversal attacks (CWE-22)
func ValidateFilePath(targetPath, baseDir string) error {
	cleanTarget, err := filepath.Abs(filepath.Clean(targetPath))
	if err != nil {
		return fmt.Errorf("failed to resolve target path: %w", err)
	}

	cleanBase, err := filepath.Abs(filepath.Clean(baseDir))
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	relPath, err := filepath.Rel(cleanBase, cleanTarget)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}

	if containsDirectoryTraversal(relPath) {
		return fmt.Errorf("path escapes base directory: %s", targetPath)
	}

	return nil
}

// ContainsUnsafePath reports whether a user-supplied path contains parent
// directory references. The raw input is inspected before cleaning, since
// filepath.Clean would fold "a/../.." into "..".
func ContainsUnsafePath(path string) bool {
	if path == "" {
		return false
	}

	normalized := strings.ReplaceAll(path, "\\", "/")
	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return true
		}
	}

	return false
}

// containsDirectoryTraversal checks if a relative path escapes its base.
// Both Unix (/) and Windows (\) separators are handled.
func containsDirectoryTraversal(relPath string) bool {
	if filepath.IsAbs(relPath) || relPath == ".." {
		return true
	}

	hasParentPrefix := strings.HasPrefix(relPath, "../") || strings.HasPrefix(relPath, "..\\")
	hasEmbeddedParent := strings.Contains(relPath, "/../") || strings.Contains(relPath, "\\..\\")
	hasParentSuffix := strings.HasSuffix(relPath, "/..") || strings.HasSuffix(relPath, "\\..")

	return hasParentPrefix || hasEmbeddedParent || hasParentSuffix
}
