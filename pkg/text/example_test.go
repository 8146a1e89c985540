package text_test

import (
	"fmt"

	"github.com/walteh/patchrc/pkg/text"
)

func ExamplePatchRule_Apply() {
	rule, err := text.NewPatchRule(`(\w+)\.old\(\)`, `\1.new()`, text.SyntaxBackslash)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	out, count := rule.Apply("a.old(); b.old();")
	fmt.Printf("Modified: %s\n", out)
	fmt.Printf("Changes: %d\n", count)

	// Output:
	// Modified: a.new(); b.new();
	// Changes: 2
}

func ExampleNewPatchRule() {
	_, err := text.NewPatchRule(`(a)`, `\2`, text.SyntaxBackslash)
	fmt.Printf("Validation error: %v\n", err)

	// Output:
	// Validation error: invalid patch rule: reference to group 2 but pattern has 1 groups
}
