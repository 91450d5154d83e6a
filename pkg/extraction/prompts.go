package extraction

// extractionSystemPrompt primes the model for structured extraction.
const extractionSystemPrompt = `You extract structured memories from conversations.`

// extractionPrompt asks the model for a JSON array of candidate memories.
// The conversation text is appended by the extractor.
const extractionPrompt = `You are a memory extraction system. Analyze the conversation and extract important information that should be remembered for future interactions.

Extract memories in these categories:
1. **preference**: User likes, dislikes, choices (language, style, timing)
2. **fact**: Personal information, demographics, important facts
3. **entity**: Important people, places, organizations mentioned
4. **commitment**: Promises, scheduled events, deadlines
5. **instruction**: Explicit instructions on how to behave or respond
6. **constraint**: Limitations, restrictions, boundaries

Also extract GENERAL PREFERENCE RULES when the user expresses a broad pattern.
Examples:
- "In any anime, my favorite character is the main character" -> preference key: favorite_anime_character_type, value: main character
- "I usually prefer vegetarian food" -> preference key: dietary_preference, value: vegetarian

For each memory found, provide:
- type: One of the categories above
- key: Short semantic identifier (e.g., "language_preference", "call_time")
- value: The specific information to remember
- confidence: 0.0 to 1.0 score
- importance: 0.0 to 1.0 score (how critical this is)

Conversation:
%s

Respond ONLY with a JSON array of memories. If no memories found, return empty array [].
Example:
[
  {
    "type": "preference",
    "key": "language",
    "value": "Kannada",
    "confidence": 0.95,
    "importance": 0.8
  }
]`
