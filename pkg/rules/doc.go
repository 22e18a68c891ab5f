// Package rules loads organizing rules and turns a file's context into an
// action plan.
//
// # Rule documents
//
// Rules live in a YAML (default) or TOML document:
//
//	version: 1
//	rules:
//	  - name: Phone photos
//	    if:
//	      mimetype: image/*
//	      exif.camera_model: ["iPhone", "Pixel"]
//	    then:
//	      move_to: "Photos/{year}/{month}"
//	      rename: "{datetime}_{hash8}.{ext}"
//
// Each rule has a name, an "if" condition (an AND of predicates, see package
// matchers) and a "then" action. A "then" block holds at most one placement
// directive (move_to, copy_to, link_to or rename_to) plus optional tags_add.
// A block with only tags_add is a tag-only rule.
//
// # Evaluation
//
// Rules are evaluated in document order. The first matching rule with a
// placement directive decides where the file goes; every matching rule
// contributes its tags.
package rules
