package deploy

import (
	"path"
	"sort"
	"strings"

	"github.com/modcollect/modcollect/pkg/types"
)

// ClassifyTree walks the staging directory and classifies every regular
// file into a deployment plan. Hidden entries at the staging root are
// skipped; directory traversal order is sorted so the resulting plan is
// deterministic for a given tree.
func (c *Classifier) ClassifyTree(fsys types.FS, stagingDir string) (*types.DeploymentPlan, error) {
	plan := &types.DeploymentPlan{}

	files, err := listFiles(fsys, stagingDir, "")
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	for _, rel := range files {
		if strings.HasPrefix(firstSegment(rel), ".") {
			plan.Skipped = append(plan.Skipped, types.SkippedFile{Path: rel, Reason: "hidden file"})
			continue
		}

		result := c.Classify(rel)
		switch result.Category {
		case CategorySkip:
			plan.Skipped = append(plan.Skipped, types.SkippedFile{Path: rel, Reason: result.Reason})
		case CategoryGameRoot:
			plan.GameRoot = append(plan.GameRoot, types.PlanEntry{
				Source: path.Join(stagingDir, rel),
				Dest:   result.Dest,
			})
		case CategoryData:
			plan.Data = append(plan.Data, types.PlanEntry{
				Source: path.Join(stagingDir, rel),
				Dest:   result.Dest,
			})
		}
	}

	return plan, nil
}

// listFiles recursively collects slash-separated relative paths of regular
// files under dir.
func listFiles(fsys types.FS, root, rel string) ([]string, error) {
	dir := root
	if rel != "" {
		dir = path.Join(root, rel)
	}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "" {
			childRel = path.Join(rel, entry.Name())
		}
		if entry.IsDir() {
			children, err := listFiles(fsys, root, childRel)
			if err != nil {
				return nil, err
			}
			files = append(files, children...)
			continue
		}
		files = append(files, childRel)
	}
	return files, nil
}

func firstSegment(rel string) string {
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}
