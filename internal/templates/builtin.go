package templates

const unsubscribeFooter = `{{if .unsubscribe}}

---
Reply with "unsubscribe" to stop receiving emails{{end}}`

var builtin = map[Kind]source{
	ColdGeneral: {
		subject: `{{.your_skill}} engineer interested in {{.company_name}}`,
		body: `Hi {{.first_name}},

I'm {{.your_name}}, a {{.your_title}} with {{.years_experience}} years of experience in {{.your_specialty}}.

I've been following {{.company_name}}'s work{{if .specific_detail}} on {{.specific_detail}}{{end}}, and I'm impressed by what you're building.

My background includes:
• {{.achievement_1}}
• {{.achievement_2}}

I'd love to learn more about {{.company_name}}'s technical challenges. Would you have 15 minutes for a quick chat?

Best,
{{.your_name}}
{{.your_linkedin}}` + unsubscribeFooter,
	},

	ColdJobSpecific: {
		subject: `{{.job_title}} application - {{.your_name}}`,
		body: `Hi {{.first_name}},

I saw the {{.job_title}} opening at {{.company_name}} and believe I'm a strong fit.

Why I'm excited about this role:
{{.company_name}}'s mission resonates with me{{if .personal_reason}} because {{.personal_reason}}{{end}}.

What I bring:
• {{.skill_1}}
• {{.skill_2}}
• {{.skill_3}}

I've attached my resume. Happy to share more details if helpful.

Looking forward to hearing from you.

Best,
{{.your_name}}
{{.your_portfolio}}` + unsubscribeFooter,
	},

	Followup1: {
		subject: `Re: {{.original_subject}}`,
		body: `Hi {{.first_name}},

Following up on my note from last week. I know inboxes get busy.

{{if .new_info}}To add some context: {{.new_info}}{{end}}

Would love to connect if there's interest.

Best,
{{.your_name}}`,
	},

	Followup2: {
		subject: `Re: {{.original_subject}}`,
		body: `Hi {{.first_name}},

One more follow-up{{if .resource}} - I wanted to share something that might be useful:

{{.resource}}{{end}}

Still interested in connecting when timing works.

Best,
{{.your_name}}`,
	},

	FollowupFinal: {
		subject: `Re: {{.original_subject}}`,
		body: `Hi {{.first_name}},

Last note from me - I don't want to clutter your inbox.

If {{.company_name}} has openings in the future that match my background ({{.your_specialty}}), I'd love to hear about them.

Feel free to reach out anytime: {{.your_email}}

Wishing you and the team continued success.

Best,
{{.your_name}}`,
	},
}
