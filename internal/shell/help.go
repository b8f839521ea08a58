package shell

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/user/dbbuddy/internal/types"
)

type helpEntry struct {
	name  string
	short string
	long  string
}

var helpTopics = []helpEntry{
	{"search", "Search the remote databases and add the results", `
Run a new search, adding any new records to the live session.
Accessions are fetched directly; anything else is sent to the search
endpoints of the databases currently in scope.`},
	{"filter", "Move records that do not match to the recycle bin", `
Further refine your results with search terms:
    - All summary fields are searched
    - Multiple filters can be included at the same time, separated by spaces (equivalent to 'AND')
    - Enclose filters in quotes
    - Regular expressions are understood
    - Records that do not match your filters are moved to the recycle bin; return them to
      the main list with the 'reset' or 'restore' commands`},
	{"restore", "Return matching records from the recycle bin", `
Return a subset of filtered records back into the main list.
Patterns follow the same rules as 'filter'.`},
	{"reset", "Return every filtered record to the main list", `
Return all filtered records back into the main list (use the 'restore' command to only return a subset).`},
	{"clear_all", "Delete every record and search term", `
Delete all records currently stored in your live session, including the recycle bin.`},
	{"database", "Set the databases to search", ""},
	{"download", "Retrieve full records for every active accession", `
Retrieve full records for all accessions in the main record list.
Large requests must be confirmed before they start.`},
	{"format", "Set the output format", `
Set the output format:
    ids or accessions         ->  Simple list of all accessions in the buffer
    summary or full_summary   ->  Information about each record
    <sequence format>         ->  Full sequence records (fasta, gb, genbank, raw)`},
	{"show", "Print records in the current format", `
Output the records held in the live session.
    show [N] [columns...]
N limits the number of records; named columns restrict the summary table.`},
	{"status", "Summarize the live session", ""},
	{"failures", "Print the failures reported by the remote databases", ""},
	{"write", "Write the active records to a file", `
Send records to a file, in the current output format.
The last path written is reused when no path is given.`},
	{"save", "Alias for 'write'", ""},
	{"exit", "End the live session", ""},
	{"quit", "End the live session", ""},
	{"help", "List commands or describe one", ""},
}

func (sh *Shell) doHelp(args string) {
	topic := strings.ToLower(strings.TrimSpace(args))
	if topic == "" {
		sh.bold.Fprintln(sh.out, "Documented commands (type help <topic>):")
		w := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
		for _, h := range helpTopics {
			fmt.Fprintf(w, "  %s\t%s\n", h.name, h.short)
		}
		w.Flush()
		return
	}

	for _, h := range helpTopics {
		if h.name != topic {
			continue
		}
		switch {
		case h.name == "database":
			sh.good.Fprintf(sh.out, "Reset the database(s) to be searched. Separate multiple databases with spaces.\n"+
				"Currently set to: %s\nValid choices: %s\n", sh.sess.Scope(), strings.Join(types.DatabaseNames, ", "))
		case h.long != "":
			sh.good.Fprintln(sh.out, strings.TrimPrefix(h.long, "\n"))
		default:
			sh.good.Fprintln(sh.out, h.short+".")
		}
		return
	}
	sh.bad.Fprintf(sh.errOut, "*** No help on %s\n", topic)
}
