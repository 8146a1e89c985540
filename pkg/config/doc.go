/*
Package config loads patch files for patchrc.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +-----------+-----------+-----------+
	      |           |                       |
	+-----+-----+ +---+-----+            +----+----+
	|   YAML    | |  JSON   |            |   HCL   |
	| Parser    | | Parser  |            | Parser  |
	+-----------+ +---------+            +---------+

A patch file names one rule and an explicit list of targets:

	rule:
	  pattern: '(\s+)const toolCard = container\.querySelector\(''\.tool-card''\);\s+if \(!toolCard\) return;'
	  replacement_file: toolcard.txt
	targets:
	  - js/pdf/pdf-security.js
	  - js/image/image-crop.js
	ignore:
	  - "vendor/**"

The same file in HCL, where config_dir is the file's directory:

	rule {
	  pattern          = "(\\s+)const toolCard"
	  replacement_file = "${config_dir}/toolcard.txt"
	}
	targets = ["js/pdf/pdf-security.js"]

Relative targets and replacement files resolve against the patch file's
directory. Ignore patterns (doublestar syntax) only filter the listed
targets; nothing is discovered on disk.
*/
package config
