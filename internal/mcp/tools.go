package mcp

var ideSchema = map[string]any{
	"type":        "string",
	"enum":        []string{"vs", "ws", "cs", "ij", "pc"},
	"description": "Editor to launch: vs=VS Code, ws=WebStorm, cs=Cursor, ij=IntelliJ IDEA, pc=PyCharm",
}

// ToolDefinitions describes the tool surface for tools/list.
func ToolDefinitions() []map[string]any {
	return []map[string]any{
		{
			"name":        "list-repos",
			"description": "List registered repositories and collections",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type":        "string",
						"enum":        []string{"all", "repos", "collections"},
						"description": "What to list (default all)",
					},
				},
			},
		},
		{
			"name":        "add-repo",
			"description": "Register a repository under a name; the path must be an existing directory",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Repository name"},
					"path": map[string]string{"type": "string", "description": "Directory path, ~ allowed"},
				},
				"required": []string{"name", "path"},
			},
		},
		{
			"name":        "get-repo",
			"description": "Return the stored path of a registered repository",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Repository name"},
				},
				"required": []string{"name"},
			},
		},
		{
			"name":        "remove-repo",
			"description": "Remove a repository from the registry",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Repository name"},
				},
				"required": []string{"name"},
			},
		},
		{
			"name":        "add-collection",
			"description": "Create a named collection of registered repositories",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":  map[string]string{"type": "string", "description": "Collection name"},
					"repos": map[string]string{"type": "string", "description": "Comma-separated repository names"},
				},
				"required": []string{"name", "repos"},
			},
		},
		{
			"name":        "delete-collection",
			"description": "Delete a collection (repositories are kept)",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Collection name"},
				},
				"required": []string{"name"},
			},
		},
		{
			"name":        "list-collection",
			"description": "List all collection names, or the members of one collection",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Collection name (omit to list all)"},
				},
			},
		},
		{
			"name":        "init-repo",
			"description": "Register the current working directory as a repository",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Repository name"},
				},
				"required": []string{"name"},
			},
		},
		{
			"name":        "open-repo",
			"description": "Open a registered repository in an editor",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Repository name"},
					"ide":  ideSchema,
				},
				"required": []string{"name", "ide"},
			},
		},
		{
			"name":        "open-collection",
			"description": "Open every repository in a collection in an editor",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]string{"type": "string", "description": "Collection name"},
					"ide":  ideSchema,
				},
				"required": []string{"name", "ide"},
			},
		},
	}
}
