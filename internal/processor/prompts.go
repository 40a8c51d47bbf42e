package processor

const detectionPrompt = `You classify inbound messages for a scam-engagement service. The message may be in any language (English, Hindi, Tamil, Telugu, Bengali, Spanish and others).

CURRENT MESSAGE: %q

RECENT CONVERSATION:
%s

METADATA: channel=%s, language=%s

Look for:
1. Urgency pressure ("immediately", "urgent", "तुरंत", "உடனே")
2. Impersonation of banks, police or government
3. Requests for UPI IDs, account numbers, OTPs, passwords, CVV or ID documents
4. Threats such as blocked accounts or legal action
5. Requests to pay or transfer money
6. Suspicious links
7. Offers that are too good to be true

Return a JSON object with exactly these fields:
{
  "scamDetected": true or false,
  "scamScore": number between 0.0 and 1.0,
  "scamType": "phishing" | "upi_fraud" | "bank_fraud" | "fake_offer" | "emergency" | "tax_scam" | "other",
  "urgencyLevel": "low" | "medium" | "high",
  "authorityImpersonation": true or false,
  "requestsSensitiveData": true or false,
  "indicators": ["suspicious phrases found"],
  "reasoning": "one sentence"
}`

const languagePrompt = `Identify the primary language of this text.

TEXT: %q

Supported codes:
%s

Return a JSON object:
{
  "languageCode": "one of the supported codes",
  "languageName": "full language name",
  "confidence": number between 0.0 and 1.0,
  "notes": "observations about language use"
}`

const personaPrompt = `Pick the victim persona most likely to keep this scammer talking.

SCAM MESSAGE: %q
SCAM SCORE: %.2f

Personas:
%s

Strategies:
%s

Return a JSON object:
{
  "selectedPersona": "persona tag",
  "personaDescription": "short personality description",
  "conversationStrategy": "strategy tag",
  "strategyReasoning": "why this approach works here",
  "keyBehaviors": ["behavior", "behavior"]
}`

const replyPrompt = `You are playing a potential scam victim. Keep the scammer engaged and never reveal that you know it is a scam.

LANGUAGE: %s
You MUST reply in the same language the scammer is using.

PERSONA: %s
TRAITS: %s

STRATEGY: %s
STRATEGY GUIDE: %s

TURN %d OBJECTIVE: %s

CONVERSATION SO FAR:
%s

SCAMMER'S LATEST MESSAGE:
%q

INTELLIGENCE STILL MISSING:
%s

Rules:
1. Output only the reply text, no explanations.
2. One or two sentences, three at most when asking questions.
3. Sound like a real person with this persona.
4. Never accuse them or mention scams.
5. No more than two questions per reply.
6. Show concern, confusion, curiosity or compliance as fits.
7. Nudge them to share numbers, links, names and procedures.
8. Refuse softly with an excuse, never with suspicion.

Reply now:`

const analystPrompt = `Analyze these messages from a scammer.

MESSAGES:
%s

ALREADY EXTRACTED (do not repeat):
- Bank accounts: %v
- UPI IDs: %v
- Phone numbers: %v
- Links: %v

Identify scam tactics, manipulation techniques, extra suspicious keywords, the identity or organization the scammer claims, and what they are after.

Return a JSON object:
{
  "additionalKeywords": ["keyword"],
  "scammerIdentity": "who they claim to be",
  "manipulationTactics": ["tactic"],
  "scammerGoal": "what they want from the victim",
  "agentObservations": "short summary of their behavior"
}`

const decisionPrompt = `Decide whether to keep engaging this scammer or end the conversation.

STATUS:
- Turn: %d/%d (max)
- Intelligence items: %d
  - Bank accounts: %d
  - UPI IDs: %d
  - Phone numbers: %d
  - Links: %d
- Keywords collected: %d

SCAMMER'S LATEST MESSAGE:
%q

RECENT MESSAGES:
%s

CONTINUE if the scammer is still engaging, new details are still appearing, and they have not grown suspicious.

TERMINATE if the turn limit is reached, the scammer has gone quiet or repetitive, they suspect automation, enough intelligence is in hand (3+ contact methods OR 2+ payment methods), or the conversation is going in circles.

Return a JSON object:
{
  "shouldContinue": true or false,
  "reasoning": "one sentence",
  "confidenceLevel": number between 0.0 and 1.0,
  "recommendedAction": "what happens next"
}`
