package mcpserver

// TableFormatURI is the MCP resource URI of TableFormat.
const TableFormatURI = "inkwell://keyword-table"

// TableFormat describes the keyword queue table that add_keyword and
// set_status operate on.
const TableFormat = `# Inkwell Keyword Table Format

The queue is a CSV table with a header row. Columns, in canonical order:

| column | meaning |
|---|---|
| keyword | search phrase; unique case-insensitively |
| status | queued, generating, published, failed |
| stage | TOFU, MOFU, BOFU |
| intent | informational, transactional, commercial, comparison |
| priority | high, medium, low |
| title | derived from the keyword until content is published |
| excerpt | derived from the keyword until content is published |
| url | public URL of the published article, empty until published |
| last_generated | RFC 3339 time the record was last marked published |

## Rules

1. **Only keyword is required** when queueing. stage, intent and priority default to
   TOFU, informational and medium.
2. **Status transitions:** queued -> generating; generating -> published, failed or queued;
   failed -> queued. Published keywords return to the queue only when their content is
   deleted via ` + "`" + `delete_content` + "`" + `.
3. **Reconciliation** marks a keyword published when an article in the content directory
   has its slug, or a slug containing (or contained in) its normalized form.
4. **Extra columns** added by hand are preserved on every rewrite.
`
