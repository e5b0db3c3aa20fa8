package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	groupDescription string
	groupJSON        bool
	groupDeleteYes   bool
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage knowledge groups",
	Long: `Groups are named sets of knowledge documents, used to scope searches.
Deleting a group deletes every document it refers to.`,
	Annotations: needs(NeedKnowledge),
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE:  runGroupList,
}

var groupShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show the documents of a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupShow,
}

var groupCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create an empty group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupCreate,
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a group and all of its documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupDelete,
}

func init() {
	groupListCmd.Flags().BoolVar(&groupJSON, "json", false, "output as JSON")
	groupShowCmd.Flags().BoolVar(&groupJSON, "json", false, "output as JSON")
	groupCreateCmd.Flags().StringVarP(&groupDescription, "description", "d", "", "group description")
	groupDeleteCmd.Flags().BoolVarP(&groupDeleteYes, "yes", "y", false, "do not ask for confirmation")

	groupCmd.AddCommand(groupListCmd)
	groupCmd.AddCommand(groupShowCmd)
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	rootCmd.AddCommand(groupCmd)
}

type groupSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Documents   int    `json:"documents"`
}

func runGroupList(cmd *cobra.Command, _ []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	groups, err := libraryService.ListGroups(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to list groups: %w", err)
	}

	if groupJSON {
		summaries := make([]groupSummary, 0, len(groups))
		for _, g := range groups {
			summaries = append(summaries, groupSummary{Name: g.Name, Description: g.Description, Documents: g.DocumentCount()})
		}
		data, err := json.MarshalIndent(summaries, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal groups: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(groups) == 0 {
		cmd.Println("No groups.")
		return nil
	}

	cmd.Println("Groups:")
	for _, g := range groups {
		cmd.Printf("  %s (%d documents)\n", g.Name, g.DocumentCount())
		if g.Description != "" {
			cmd.Printf("      %s\n", g.Description)
		}
	}
	return nil
}

func runGroupShow(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	docs, err := libraryService.GroupDocuments(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("failed to show group: %w", err)
	}

	if groupJSON {
		data, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal documents: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Documents in group %s:\n", args[0])
	if len(docs) == 0 {
		cmd.Println("  (none)")
		return nil
	}
	for _, doc := range docs {
		cmd.Printf("  %s  %s\n", doc.DocID, doc.SectionTitle)
		if doc.TitlePath != "" && doc.TitlePath != doc.SectionTitle {
			cmd.Printf("      %s\n", doc.TitlePath)
		}
	}
	return nil
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("group name is required")
	}
	if err := libraryService.CreateGroup(commandContext(cmd), name, groupDescription); err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	cmd.Printf("Created group %s\n", name)
	return nil
}

func runGroupDelete(cmd *cobra.Command, args []string) error {
	if libraryService == nil {
		return notConfigured("library")
	}

	if !groupDeleteYes {
		cmd.Printf("Delete group %s and all of its documents? [y/N]: ", args[0])
		answer := strings.ToLower(readLine(bufio.NewReader(cmd.InOrStdin())))
		if answer != "y" && answer != "yes" {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := libraryService.DeleteGroup(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	cmd.Printf("Deleted group %s\n", args[0])
	return nil
}
