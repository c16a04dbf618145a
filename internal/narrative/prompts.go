package narrative

const insightsSystemPrompt = `You are a world-renowned cultural anthropologist specializing in cross-cultural analysis and personalized cultural recommendations. Provide thoughtful, accurate insights based on cultural data patterns.`

const insightsUserPrompt = `Analyze these cultural preferences and provide insights in JSON format.

Preferences: %s
%s
Return JSON with this structure:
{
  "insights": [
    {
      "category": "music|food|travel|art|lifestyle",
      "insight": "cultural insight about patterns and connections",
      "culturalConnections": ["region/tradition names"],
      "recommendedExperiences": ["specific recommendations"],
      "confidence": 0.85
    }
  ]
}

Focus on cross-cultural patterns, geographic affinities and authentic experiences.`

const storySystemPrompt = `You are a master storyteller and cultural guide who creates personalized cultural narratives that help people understand their place in the global cultural landscape.`

const storyUserPrompt = `Create a compelling, personalized cultural narrative based on these preferences and insights.

Preferences: %s
Cultural Insights: %s

Write a 3-4 paragraph cultural story that:
1. Explains the user's unique cultural DNA
2. Connects their preferences to global cultural traditions
3. Suggests a cultural journey or path of discovery
4. Is engaging, personal and inspiring

Write in second person ("Your taste profile reveals...") and make it feel like a personalized cultural reading.`

const enhanceSystemPrompt = `You are a personalized cultural concierge who enhances recommendations with meaningful, personal context.`

const enhanceUserPrompt = `Enhance this cultural recommendation with personal context and deeper insights.

Recommendation: %s
User Context: %s

Provide a 2-3 sentence enhanced description that explains:
1. Why this specifically matches the user's cultural profile
2. What unique cultural value they'll gain from this experience
3. How it connects to their broader cultural journey

Be specific, personal and culturally insightful.`
