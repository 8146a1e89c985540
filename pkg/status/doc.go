/*
Package status manages file access and outcome tracking for patchrc.

	            +-------------+
	            |   Status    |
	            |  (Storage)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|   Files   |           |  Logs   |
	| (Storage) |           | (UI/UX) |
	+-----------+           +---------+

🎯 Purpose:
- Defines the per-file outcomes (fixed, unchanged, not-found, read-error, write-error)
- Reads targets as UTF-8 text
- Replaces targets atomically (temp file + rename, mode preserved)
- Reports progress through zerolog

🤝 Interfaces:
- FileManager: existence checks, text reads, atomic writes
- StatusReporter: progress and per-file tracking
- FileFormatter: status messages

A write either lands completely or not at all. If any step before the rename
fails, the temp file is removed and the original file keeps its bytes.

🔍 Example:

	mgr := status.New("", &logger)

	ok, err := mgr.FileExists(ctx, path)
	text, err := mgr.ReadText(ctx, path)
	err = mgr.WriteFileAtomic(ctx, path, []byte(patched))
*/
package status
