package normalize

import (
	"regexp"
	"strings"
)

// rewriteRule collapses volatile numeric content (dates, counters, serial
// numbers) into a stable template so the line addresses the same asset every
// time. The whole table is frozen.
type rewriteRule struct {
	pattern     *regexp.Regexp
	replacement string
}

var rewriteRules = []rewriteRule{
	// Cactpot broker drawing numbers.
	{regexp.MustCompile(`Come one, come all - drawing number \d{4}`),
		"Come one, come all - drawing number"},
	// Delivery moogle carrier level.
	{regexp.MustCompile(`Your postal prowess has earned you carrier level \d{2}`),
		"Your postal prowess has earned you this carrier level"},
	// Chocobo race eligibility.
	{regexp.MustCompile(`^Congratulations.*eligible to participate in sanctioned chocobo races\.*`),
		"Congratulations! Your chocobo is now eligible to participate in sanctioned chocobo races."},
	// Chocobo training.
	{regexp.MustCompile(`^What sort of training did you have in mind for .*, (madam|sir)\?$`),
		"What sort of training did you have in mind for your chocobo?"},
	// Teaching a chocobo ability.
	{regexp.MustCompile(`^You wish to teach .*, (madam|sir)\? Then, if you would be so kind as to provide the requisite manual\.$`),
		"You wish to teach your chocobo an ability? Then, if you would be so kind as to provide the requisite manual."},
	// Removing a chocobo ability.
	{regexp.MustCompile(`^You wish for .+ to unlearn an ability\? Very well, if you would be so kind as to specify the undesired ability\.\.\.$`),
		"You wish for your chocobo to unlearn an ability? Very well, if you would be so kind as to specify the undesired ability..."},
	// Lady Luck draws.
	{regexp.MustCompile(`And the winning number for draw \d+ is\.\.\. \d+!`),
		"And here is the winning number!"},
	{regexp.MustCompile(`And the Early Bird Bonus grants everyone an extra \d+%! Make sure you lucky folk claim your winnings promptly!`),
		"And the Early Bird Bonus grants everyone an extra! Make sure you lucky folk claim your winnings promptly!"},
	// Jumbo Cactpot broker.
	{regexp.MustCompile(`Welcome to drawing number \d+ of the Jumbo Cactpot! Can I interest you in a ticket to fame and fortune\?`),
		"Welcome to drawing number of the Jumbo Cactpot! Can I interest you in a ticket to fame and fortune?"},
	// Gold Saucer attendant.
	{regexp.MustCompile(`Tickets for drawing number \d+ of the Mini Cactpot are now on sale\. To test your fortunes, make your way to Entrance Square!`),
		"Tickets for this drawing number of the Mini Cactpot are now on sale. To test your fortunes, make your way to Entrance Square!"},
	{regexp.MustCompile(`Entries are now being accepted for drawing number \d+ of the Mini Cactpot! Venture to Entrance Square to test your luck!`),
		"Entries are now being accepted for this drawing number of the Mini Cactpot! Venture to Entrance Square to test your luck!"},
	{regexp.MustCompile(`Entries for drawing number \d+ of the Mini Cactpot will close momentarily\. Those still wishing to purchase a ticket are encouraged to act quickly!`),
		"Entries for the drawing number of the Mini Cactpot will close momentarily. Those still wishing to purchase a ticket are encouraged to act quickly!"},
	// Delivery moogle mailbox overflow.
	{regexp.MustCompile(`Your mailbox is a complete and utter mess! There wasn't any room left, so I had to send back \d+ letters, kupo!`),
		"Your mailbox is a complete and utter mess! There wasn't any room left, so I had to send back some letters, kupo!"},
}

// speakerPrefixRule replaces the whole sentence with a fixed template when a
// specific speaker's line starts with a known volatile prefix.
type speakerPrefixRule struct {
	speaker     string
	prefix      string
	replacement string
}

var speakerPrefixRules = []speakerPrefixRule{
	{"Cactpot Cashier", "Congratulations! You have won",
		"Congratulations! You have won!"},
	{"Feo Ul", "A whispered word, and off",
		"A whispered word, and off goes yours on a grand adventure! What wonders await at journey's end?"},
	{"Feo Ul", "Carried by the wind, the leaf flutters to the ground",
		"Carried by the wind, the leaf flutters to the ground - and so does yours return to your side. Was the journey a fruitful one?"},
	{"Feo Ul", "From verdant green to glittering gold",
		"From verdant green to glittering gold, so does the leaf take on delightful hues with each new season. If you would see yours dressed in new colors, your beautiful branch will attend to the task."},
	{"Feo Ul", "Oh, my adorable sapling! You have need",
		"Oh, my adorable sapling! You have need of yours, yes? But sing the word, and let your beautiful branch do what only they can."},
	{"Feo Ul", "Very well. I shall slip quietly from",
		"Very well. I shall slip quietly from your servant's dreams. May your leaf flutter, float, and find a way back to you."},
	{"Feo Ul", "You have no more need of",
		"You have no more need of yours? So be it! I shall steal quietly from your loyal servant's dreams."},
	{"Mini Cactpot Broker", "We have a winner! Please accept my congratulations",
		"We have a winner! Please accept my congratulations!"},
	{"Mini Cactpot Broker", "Congratulations! Here is your prize",
		"Congratulations! Here is your prize. Would you like to purchase another ticket?"},
}

func applyRewrites(speaker, sentence string) string {
	for _, r := range rewriteRules {
		sentence = r.pattern.ReplaceAllString(sentence, r.replacement)
	}
	for _, r := range speakerPrefixRules {
		if speaker == r.speaker && strings.HasPrefix(sentence, r.prefix) {
			sentence = r.replacement
		}
	}
	return sentence
}
