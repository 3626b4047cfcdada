package mcpserver

// TaggingConventions describes how captions and keywords should be
// written so that edits from LLM clients stay consistent with the rest
// of the gallery.
const TaggingConventions = `# Sowilo Tagging Conventions

Tags are stored inside the image file itself (IPTC), so every edit
rewrites the file's metadata segment. Keep values small and meaningful.

## Caption

- One or two sentences describing who/what/where, plain text.
- Limit: 2000 bytes. Oversized captions are rejected, never truncated.
- An empty caption is valid and clears the field.

## Keywords

- Short nouns or place names: ` + "`beach`" + `, ` + "`reunion-1987`" + `, ` + "`grandma-ruth`" + `.
- Lowercase preferred; matching is case-insensitive either way.
- Limit: 64 bytes per keyword. Duplicates (ignoring case) are dropped,
  first occurrence wins; insertion order is preserved for display.
- Replace the full set on update — the tool does not append.

## Concurrency

If a photo was changed on disk since it was last read, the update fails
with a conflict. Re-read the photo with get_photo and retry with the
fresh state.
`
