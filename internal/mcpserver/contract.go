package mcpserver

// PageFormatContract describes the canonical page and block format that
// LLM consumers should follow when creating pages or appending blocks.
const PageFormatContract = `# Othala Page Format Contract

Othala stores content as pages of typed blocks, not as Markdown files.

## Pages

- A page is identified by its **title**. Lookup is case- and
  whitespace-insensitive ("Apple Pie" and "apple  pie" are the same page).
- Titles MUST be non-empty and SHOULD be short noun phrases.
- Journal pages are created automatically per day; do not create pages
  titled like dates yourself — use the ` + "`today_journal`" + ` tool.

## Blocks

- A block is one unit of content (a paragraph, heading, list item, ...).
- Appended blocks default to the ` + "`paragraph`" + ` type.
- Keep one idea per block; prefer several small blocks over one long one.

## References

- Reference another page inline with double brackets: ` + "`[[Page Title]]`" + `.
- Use ` + "`[[Page Title|display text]]`" + ` when the display text differs.
- References to pages that do not exist yet are allowed; they become live
  backlinks the moment the page is created.
- Emphasis written as ` + "`**bold term**`" + ` is harvested as a concept for
  cross-page correlation — bold the key terms of a block.

## Example

Appending to page "Reading Notes":

` + "```" + `
The [[Mushroom at the End of the World]] argues that **precarity** is
the condition of our time. See also [[Supply Chains]].
` + "```" + `
`
