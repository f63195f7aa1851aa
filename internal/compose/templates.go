package compose

type template struct {
	steps  string
	safety string
	outro  string // %s is replaced by the account tag
}

var templates = []template{
	{
		steps:  "✅ Steps:\n1) Open official link\n2) Read quests/requirements\n3) Complete tasks\n4) Track snapshot/claim",
		safety: "🛡️ Safety:\n• Never share seed/private key\n• Never pay 'fees'\n• Avoid fake domains",
		outro:  "If you found this useful: bookmark + follow %s for VERIFIED drops.",
	},
	{
		steps:  "Quick guide:\n1) Official link\n2) Quests / points\n3) Do tasks\n4) Save this thread for updates",
		safety: "Safety check:\n• Domain must match official\n• No upfront payments\n• Separate wallet recommended",
		outro:  "More verified intel daily → %s",
	},
	{
		steps:  "Action list:\n1) Visit official site\n2) Find campaign page\n3) Complete quests\n4) Watch for snapshot/claim",
		safety: "Do NOT:\n• Share seed/private key\n• Click lookalike domains\n• Pay activation fees",
		outro:  "Bookmark + follow %s.",
	},
	{
		steps:  "What to do:\n1) Official link\n2) Confirm tasks\n3) Collect points\n4) Track deadlines",
		safety: "Risk control:\n• Use burner wallet\n• Verify X profile\n• Avoid DMs & fees",
		outro:  "Verified drops only. Follow %s.",
	},
	{
		steps:  "Checklist:\n1) Official link\n2) Docs/blog confirmation\n3) Do quests\n4) Monitor claim updates",
		safety: "Security:\n• Never sign weird approvals\n• Revoke permissions later\n• No seed phrases ever",
		outro:  "Follow %s for daily verified threads.",
	},
	{
		steps:  "Steps (fast):\n1) Open official\n2) Complete campaign tasks\n3) Track snapshot\n4) Wait for claim info",
		safety: "Safety (fast):\n• No fees\n• No seeds\n• Correct domain only",
		outro:  "Save + follow %s.",
	},
	{
		steps:  "How to farm:\n1) Official link\n2) Join quests\n3) Do tasks\n4) Keep notes for claim",
		safety: "Safety notes:\n• Separate wallet\n• Small tx sizes\n• Verify domain",
		outro:  "More intel → %s",
	},
	{
		steps:  "Do this:\n1) Use official link\n2) Read requirements\n3) Complete tasks\n4) Track updates",
		safety: "Avoid scams:\n• No upfront payments\n• No seed/private key\n• No fake domains",
		outro:  "Follow %s + bookmark.",
	},
}
