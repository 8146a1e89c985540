/*
Package operation implements the batch patch run.

	+-------------+
	|   Patcher   |
	| (Core Logic)|
	+------+------+
	       |
	+------+------+
	|   Runner    |
	| (sync/async)|
	+------+------+

🔄 Flow, per target and in input order:
1. Check the path exists (missing -> not-found)
2. Read it as UTF-8 (failure -> read-error)
3. Apply the rule to the whole content
4. Identical result -> unchanged, nothing is written
5. Otherwise write atomically (failure -> write-error, original intact)

Per-file failures never stop the batch. They land in the RunSummary, which
keeps outcomes in input order even when files are patched concurrently.
Duplicate paths are serialized so a file is never read and written by two
workers at once. A cancelled context stops new files from starting; files
already in progress finish.

🔍 Example:

	p, err := operation.New(operation.Options{Files: mgr, Reporter: mgr})
	summary, err := p.Run(ctx, targets, rule)
*/
package operation
